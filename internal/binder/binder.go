package binder

import (
	"errors"

	"GlassView/internal/logger"
	"GlassView/internal/material"
	"GlassView/internal/scene"

	"go.uber.org/zap"
)

// Group is one designated submesh group and the material it receives.
type Group struct {
	Name      string
	Spec      *material.Spec
	Overrides map[string]material.Override // node name -> override applied to a clone
}

// Report summarises one Bind call.
type Report struct {
	Group   string
	Shared  int // meshes given the canonical spec
	Cloned  int // meshes given an overridden clone
	Skipped int // excluded meshes left alone
}

// Binder assigns material specs to the meshes of named groups.
type Binder struct {
	exclude   map[string]bool
	nextOrder int
}

// New returns a binder that never touches meshes named in exclude and hands out
// render orders counting down from renderOrderStart.
func New(exclude []string, renderOrderStart int) *Binder {
	b := &Binder{exclude: make(map[string]bool, len(exclude)), nextOrder: renderOrderStart}
	for _, n := range exclude {
		b.exclude[n] = true
	}
	return b
}

// Bind assigns spec to every mesh under groupName. Meshes named in overrides get a
// clone of spec with the override applied, so later edits to spec leave them alone.
// A missing group is an *scene.AssetIntegrityError; nothing is bound for it.
func (b *Binder) Bind(root *scene.Graph, groupName string, spec *material.Spec, overrides map[string]material.Override) (Report, error) {
	report := Report{Group: groupName}

	group, ok := root.Lookup(groupName)
	if !ok {
		err := &scene.AssetIntegrityError{Kind: "group", Name: groupName}
		logger.Log.Error("Skipping material binding", zap.String("group", groupName), zap.Error(err))
		return report, err
	}

	root.Walk(group.ID, func(n *scene.Node) bool {
		if !n.IsMesh() {
			return true
		}
		if b.exclude[n.Name] {
			report.Skipped++
			return true
		}
		if o, ok := overrides[n.Name]; ok {
			c := spec.Clone()
			o(c)
			n.Material = c
			report.Cloned++
		} else {
			n.Material = spec
			report.Shared++
		}
		n.RenderOrder = b.nextOrder
		b.nextOrder--
		return true
	})

	logger.Log.Info("Material group bound",
		zap.String("group", groupName),
		zap.String("material", spec.Name),
		zap.Int("shared", report.Shared),
		zap.Int("cloned", report.Cloned),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// BindAll binds every group. A missing group does not stop the others; all
// integrity errors are joined into the returned error.
func (b *Binder) BindAll(root *scene.Graph, groups []Group) ([]Report, error) {
	reports := make([]Report, 0, len(groups))
	var errs []error
	for _, g := range groups {
		r, err := b.Bind(root, g.Name, g.Spec, g.Overrides)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}
