package renderer

import (
	"fmt"

	"GlassView/internal/logger"
	"GlassView/internal/material"
	"GlassView/internal/scene"
	"GlassView/internal/texture"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// Texture units used by the scene shader.
const (
	unitEnv = iota
	unitCube
	unitThickness
	unitMirror
)

type glTarget struct {
	kind  TargetKind
	size  Size
	fbo   uint32
	tex   uint32
	depth uint32 // renderbuffer, zero for normal/depth targets
}

type glMesh struct {
	vao, vbo, ebo uint32
	count         int32
}

// OpenGLRenderer implements Device on an OpenGL 4.1 core context. It must be
// created and used on the thread that owns the context.
type OpenGLRenderer struct {
	sceneShader  Shader
	ssrShader    Shader
	outputShader Shader
	skybox       *Skybox
	textures     *TextureManager
	fullscreen   uint32 // empty VAO for attribute-less fullscreen draws

	meshes   map[*scene.Geometry]*glMesh
	uploaded map[*texture.Image]uint32
	targets  map[TargetID]*glTarget
	next     TargetID
	viewport Size
	swap     func()
	fallback *material.Spec
	released bool
}

// NewOpenGLRenderer initialises GL and compiles every program. swap presents the
// back buffer.
func NewOpenGLRenderer(viewport Size, swap func()) (*OpenGLRenderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("opengl init: %w", err)
	}
	rend := &OpenGLRenderer{
		sceneShader:  sceneShader(),
		ssrShader:    ssrShader(),
		outputShader: outputShader(),
		textures:     NewTextureManager(),
		meshes:       make(map[*scene.Geometry]*glMesh),
		uploaded:     make(map[*texture.Image]uint32),
		targets:      make(map[TargetID]*glTarget),
		next:         1,
		swap:         swap,
		fallback:     material.Defaults(),
	}

	var cleanup Unwind
	defer cleanup.Unwind()
	for _, s := range []*Shader{&rend.sceneShader, &rend.ssrShader, &rend.outputShader} {
		if err := s.Compile(); err != nil {
			return nil, err
		}
		cleanup.Add(s.Delete)
	}
	skybox, err := CreateSkybox()
	if err != nil {
		return nil, err
	}
	rend.skybox = skybox
	cleanup.Discard()

	gl.GenVertexArrays(1, &rend.fullscreen)
	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)
	rend.SetViewport(viewport)

	logger.Log.Info("OpenGL renderer initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return rend, nil
}

func (rend *OpenGLRenderer) CreateTarget(kind TargetKind, size Size) (TargetID, error) {
	t := &glTarget{kind: kind}
	gl.GenFramebuffers(1, &t.fbo)
	gl.GenTextures(1, &t.tex)
	if kind != TargetNormalDepth {
		gl.GenRenderbuffers(1, &t.depth)
	}
	rend.allocate(t, size)

	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	if kind == TargetCube {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_CUBE_MAP_POSITIVE_X, t.tex, 0)
	} else {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.tex, 0)
	}
	if t.depth != 0 {
		gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, t.depth)
	}
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		rend.free(t)
		return NoTarget, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}

	id := rend.next
	rend.next++
	rend.targets[id] = t
	return id, nil
}

// allocate (re)creates the storage of t at size.
func (rend *OpenGLRenderer) allocate(t *glTarget, size Size) {
	t.size = size
	w, h := int32(size.W), int32(size.H)
	if t.kind == TargetCube {
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.tex)
		for face := uint32(0); face < 6; face++ {
			gl.TexImage2D(gl.TEXTURE_CUBE_MAP_POSITIVE_X+face, 0, gl.RGBA16F, w, w, 0, gl.RGBA, gl.FLOAT, nil)
		}
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_CUBE_MAP, gl.TEXTURE_WRAP_R, gl.CLAMP_TO_EDGE)
		gl.GenerateMipmap(gl.TEXTURE_CUBE_MAP)
	} else {
		gl.BindTexture(gl.TEXTURE_2D, t.tex)
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA16F, w, h, 0, gl.RGBA, gl.FLOAT, nil)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	if t.depth != 0 {
		gl.BindRenderbuffer(gl.RENDERBUFFER, t.depth)
		if t.kind == TargetCube {
			h = w
		}
		gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, w, h)
		gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	}
}

func (rend *OpenGLRenderer) free(t *glTarget) {
	gl.DeleteFramebuffers(1, &t.fbo)
	gl.DeleteTextures(1, &t.tex)
	if t.depth != 0 {
		gl.DeleteRenderbuffers(1, &t.depth)
	}
}

func (rend *OpenGLRenderer) ResizeTarget(id TargetID, size Size) error {
	t, ok := rend.targets[id]
	if !ok {
		return fmt.Errorf("resize target %d: unknown target", id)
	}
	rend.allocate(t, size)
	return nil
}

func (rend *OpenGLRenderer) DeleteTarget(id TargetID) {
	if t, ok := rend.targets[id]; ok {
		rend.free(t)
		delete(rend.targets, id)
	}
}

// UpdateViewport updates the OpenGL viewport to match the current window size
func (rend *OpenGLRenderer) SetViewport(size Size) {
	rend.viewport = size
	gl.Viewport(0, 0, int32(size.W), int32(size.H))
}

// bind makes target the draw framebuffer. face selects the cube face and
// normalDepth, when set, becomes the second colour attachment.
func (rend *OpenGLRenderer) bind(target TargetID, face int, normalDepth TargetID) error {
	if target == Screen {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(0, 0, int32(rend.viewport.W), int32(rend.viewport.H))
		return nil
	}
	t, ok := rend.targets[target]
	if !ok {
		return fmt.Errorf("bind target %d: unknown target", target)
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
	w, h := int32(t.size.W), int32(t.size.H)
	if t.kind == TargetCube {
		if face < 0 || face > 5 {
			return fmt.Errorf("bind cube target %d: face %d", target, face)
		}
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_CUBE_MAP_POSITIVE_X+uint32(face), t.tex, 0)
		h = w
	}

	if nd, ok := rend.targets[normalDepth]; ok && normalDepth != NoTarget {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, gl.TEXTURE_2D, nd.tex, 0)
		buffers := []uint32{gl.COLOR_ATTACHMENT0, gl.COLOR_ATTACHMENT1}
		gl.DrawBuffers(2, &buffers[0])
	} else {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT1, gl.TEXTURE_2D, 0, 0)
		buffers := []uint32{gl.COLOR_ATTACHMENT0}
		gl.DrawBuffers(1, &buffers[0])
	}
	gl.Viewport(0, 0, w, h)
	return nil
}

func (rend *OpenGLRenderer) Clear(target TargetID) {
	if err := rend.bind(target, 0, NoTarget); err != nil {
		logger.Log.Warn("Clear skipped", zap.Error(err))
		return
	}
	gl.ClearColor(0, 0, 0, 0)
	if target == Screen {
		gl.ClearColor(0, 0, 0, 1)
	}
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (rend *OpenGLRenderer) DrawScene(p ScenePass) error {
	if err := rend.bind(p.Target, p.Face, p.NormalDepth); err != nil {
		return err
	}
	if p.Face >= 0 {
		// Cube faces are not cleared by the caller.
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	}

	if bg := p.Env.Background; bg != nil {
		rend.ensureTexture(bg)
		rend.skybox.Render(rend.textures, bg, p.View, p.Projection, p.Output)
	}

	gl.Enable(gl.DEPTH_TEST)
	s := &rend.sceneShader
	s.Use()
	u := s.uniforms
	u.SetMat4("view", p.View)
	u.SetMat4("projection", p.Projection)
	u.SetVec3("eye", p.Eye)
	u.SetVec3("ambientColor", p.Ambient.Color.Mul(p.Ambient.Intensity))
	u.SetBool("writeRoughness", p.NormalDepth != NoTarget)
	if p.Output != nil {
		u.SetInt("toneMapping", int32(p.Output.ToneMapping))
		u.SetFloat("exposure", p.Output.Exposure)
	} else {
		u.SetInt("toneMapping", -1)
	}

	sceneEnv := false
	if lighting := p.Env.Lighting; lighting != nil {
		gl.ActiveTexture(gl.TEXTURE0 + unitEnv)
		gl.BindTexture(gl.TEXTURE_2D, rend.ensureTexture(lighting))
		sceneEnv = true
	}
	u.SetInt("envMap", unitEnv)
	cubeEnv := false
	if cube, ok := rend.targets[p.CubeSource]; ok && p.CubeSource != NoTarget {
		gl.ActiveTexture(gl.TEXTURE0 + unitCube)
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, cube.tex)
		cubeEnv = true
	}
	u.SetInt("cubeMap", unitCube)
	u.SetInt("thicknessMap", unitThickness)
	u.SetInt("mirrorMap", unitMirror)
	if p.Mirror != nil {
		if m, ok := rend.targets[p.Mirror.Target]; ok {
			gl.ActiveTexture(gl.TEXTURE0 + unitMirror)
			gl.BindTexture(gl.TEXTURE_2D, m.tex)
			u.SetMat4("mirrorMatrix", p.Mirror.TexMatrix)
		}
	}

	for _, it := range p.Items {
		mat := it.Node.Material
		if mat == nil {
			mat = rend.fallback
		}
		rend.setMaterialUniforms(u, mat, sceneEnv, cubeEnv)

		useThickness := p.ThicknessMaps && mat.ThicknessMap != nil
		if useThickness {
			gl.ActiveTexture(gl.TEXTURE0 + unitThickness)
			gl.BindTexture(gl.TEXTURE_2D, rend.ensureTexture(mat.ThicknessMap))
		}
		u.SetBool("useThicknessMap", useThickness)
		u.SetBool("useMirror", p.Mirror != nil && p.Mirror.Node == it.Node.ID)
		u.SetMat4("model", it.World)

		mesh := rend.ensureMesh(it.Node.Geometry)
		gl.BindVertexArray(mesh.vao)
		gl.DrawElements(gl.TRIANGLES, mesh.count, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
	gl.DepthMask(true)

	if t, ok := rend.targets[p.Target]; ok && t.kind == TargetCube && p.Face == 5 {
		gl.BindTexture(gl.TEXTURE_CUBE_MAP, t.tex)
		gl.GenerateMipmap(gl.TEXTURE_CUBE_MAP)
	}
	return nil
}

// setMaterialUniforms sets material-specific uniforms and the raster state the
// material asks for.
func (rend *OpenGLRenderer) setMaterialUniforms(u *UniformCache, mat *material.Spec, sceneEnv, cubeEnv bool) {
	u.SetVec3("color", mat.Color)
	u.SetFloat("transmission", mat.Transmission)
	u.SetFloat("opacity", mat.Opacity)
	u.SetFloat("metalness", mat.Metalness)
	u.SetFloat("roughness", mat.Roughness)
	u.SetFloat("ior", mat.IOR)
	u.SetFloat("thickness", mat.Thickness)
	u.SetVec3("attenuationColor", mat.AttenuationColor)
	u.SetFloat("attenuationDistance", mat.AttenuationDistance)
	u.SetFloat("specularIntensity", mat.SpecularIntensity)
	u.SetVec3("specularColor", mat.SpecularColor)
	u.SetFloat("envMapIntensity", mat.EnvMapIntensity)
	u.SetBool("doubleSided", mat.Side == material.DoubleSide)

	var source int32
	switch {
	case mat.EnvMap == material.EnvCapture && cubeEnv:
		source = 2
	case mat.EnvMap != material.EnvNone && sceneEnv:
		source = 1
	}
	u.SetInt("envSource", source)

	switch mat.Side {
	case material.FrontSide:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	case material.BackSide:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Disable(gl.CULL_FACE)
	}
	gl.FrontFace(gl.CCW)
	gl.DepthMask(mat.DepthWrite)
	if mat.IsTransparent() {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (rend *OpenGLRenderer) DrawSSR(p SSRPass) error {
	color, ok := rend.targets[p.Color]
	if !ok {
		return fmt.Errorf("ssr: unknown colour target %d", p.Color)
	}
	nd, ok := rend.targets[p.NormalDepth]
	if !ok {
		return fmt.Errorf("ssr: unknown normal/depth target %d", p.NormalDepth)
	}
	if err := rend.bind(p.Dst, -1, NoTarget); err != nil {
		return err
	}
	s := &rend.ssrShader
	s.Use()
	u := s.uniforms
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, color.tex)
	u.SetInt("colorMap", 0)
	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, nd.tex)
	u.SetInt("normalDepthMap", 1)
	u.SetMat4("projection", p.Projection)
	u.SetMat4("invProjection", p.Projection.Inv())
	u.SetFloat("roughnessFalloff", p.Params.RoughnessFalloff)
	u.SetFloat("thickness", p.Params.Thickness)
	u.SetFloat("maxDistance", p.Params.MaxDistance)
	u.SetInt("steps", int32(max(1, p.Params.Steps)))
	u.SetFloat("intensity", p.Params.Intensity)
	rend.drawFullscreen()
	return nil
}

func (rend *OpenGLRenderer) DrawOutput(p OutputPass) error {
	src, ok := rend.targets[p.Src]
	if !ok {
		return fmt.Errorf("output: unknown source target %d", p.Src)
	}
	if err := rend.bind(p.Dst, -1, NoTarget); err != nil {
		return err
	}
	s := &rend.outputShader
	s.Use()
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, src.tex)
	s.uniforms.SetInt("source", 0)
	s.uniforms.SetInt("toneMapping", int32(p.Params.ToneMapping))
	s.uniforms.SetFloat("exposure", p.Params.Exposure)
	rend.drawFullscreen()
	return nil
}

func (rend *OpenGLRenderer) drawFullscreen() {
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	gl.BindVertexArray(rend.fullscreen)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

func (rend *OpenGLRenderer) Present() {
	if rend.swap != nil {
		rend.swap()
	}
}

// ensureTexture uploads img once for the lifetime of the renderer.
func (rend *OpenGLRenderer) ensureTexture(img *texture.Image) uint32 {
	if id, ok := rend.uploaded[img]; ok {
		return id
	}
	id := rend.textures.Acquire(img)
	rend.uploaded[img] = id
	return id
}

// ensureMesh uploads geo as interleaved position, normal, uv.
func (rend *OpenGLRenderer) ensureMesh(geo *scene.Geometry) *glMesh {
	if m, ok := rend.meshes[geo]; ok {
		return m
	}
	data := make([]float32, 0, len(geo.Positions)*8)
	for i, p := range geo.Positions {
		n := [3]float32{0, 1, 0}
		if i < len(geo.Normals) {
			n = geo.Normals[i]
		}
		var uv [2]float32
		if i < len(geo.UVs) {
			uv = geo.UVs[i]
		}
		data = append(data, p[0], p[1], p[2], n[0], n[1], n[2], uv[0], uv[1])
	}
	indices := geo.Indices
	if indices == nil {
		indices = make([]uint32, len(geo.Positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	m := &glMesh{count: int32(len(indices))}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(data) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
	}

	gl.GenBuffers(1, &m.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
	if len(indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
	}

	stride := int32(8 * 4)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 3, gl.FLOAT, false, stride, gl.PtrOffset(3*4))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(2, 2, gl.FLOAT, false, stride, gl.PtrOffset(6*4))
	gl.EnableVertexAttribArray(2)
	gl.BindVertexArray(0)

	rend.meshes[geo] = m
	return m
}

// Release frees every GL object the renderer created.
func (rend *OpenGLRenderer) Release() {
	if rend.released {
		return
	}
	rend.released = true
	for _, m := range rend.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	rend.meshes = make(map[*scene.Geometry]*glMesh)
	for id := range rend.targets {
		rend.DeleteTarget(id)
	}
	rend.textures.Clear()
	rend.uploaded = make(map[*texture.Image]uint32)
	if rend.skybox != nil {
		rend.skybox.Cleanup()
	}
	rend.sceneShader.Delete()
	rend.ssrShader.Delete()
	rend.outputShader.Delete()
	gl.DeleteVertexArrays(1, &rend.fullscreen)
	logger.Log.Info("OpenGL renderer released")
}

var _ Device = (*OpenGLRenderer)(nil)
