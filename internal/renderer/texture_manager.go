package renderer

import (
	"sync"

	"GlassView/internal/logger"
	"GlassView/internal/texture"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// TextureStats provides debugging and profiling information
type TextureStats struct {
	TotalTextures  int
	CacheHits      int
	CacheMisses    int
	TotalMemoryMB  float64
	ActiveTextures int
}

// TextureManager uploads CPU images once and shares the GL texture between users.
type TextureManager struct {
	textureCache    map[*texture.Image]uint32 // image -> OpenGL texture ID
	textureRefCount map[uint32]int            // texture ID -> reference count
	textureImages   map[uint32]*texture.Image // texture ID -> image
	mu              sync.RWMutex
	stats           TextureStats

	// GL entry points, swapped out by tests.
	upload func(img *texture.Image) uint32
	free   func(id uint32)
}

// NewTextureManager creates a new texture manager instance
func NewTextureManager() *TextureManager {
	return &TextureManager{
		textureCache:    make(map[*texture.Image]uint32),
		textureRefCount: make(map[uint32]int),
		textureImages:   make(map[uint32]*texture.Image),
		upload:          uploadFloatTexture,
		free:            func(id uint32) { gl.DeleteTextures(1, &id) },
	}
}

// Acquire returns the GL texture of img, uploading it on first use, and
// increments its reference count.
func (tm *TextureManager) Acquire(img *texture.Image) uint32 {
	if img == nil {
		return 0
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if textureID, exists := tm.textureCache[img]; exists {
		tm.textureRefCount[textureID]++
		tm.stats.CacheHits++
		return textureID
	}

	tm.stats.CacheMisses++
	textureID := tm.upload(img)
	tm.textureCache[img] = textureID
	tm.textureRefCount[textureID] = 1
	tm.textureImages[textureID] = img
	tm.stats.TotalTextures++
	tm.stats.TotalMemoryMB += float64(len(img.Pix)*4) / (1 << 20)

	logger.Log.Info("Texture uploaded",
		zap.String("name", img.Name),
		zap.Uint32("textureID", textureID),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
		zap.Bool("hdr", img.HDR))
	return textureID
}

// Lookup returns the texture of an already acquired image without touching its
// reference count.
func (tm *TextureManager) Lookup(img *texture.Image) (uint32, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	id, ok := tm.textureCache[img]
	return id, ok
}

// ReleaseTexture decrements reference count and frees texture if count reaches 0
func (tm *TextureManager) ReleaseTexture(textureID uint32) {
	if textureID == 0 {
		return
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	refCount, exists := tm.textureRefCount[textureID]
	if !exists {
		logger.Log.Warn("Attempted to release unknown texture",
			zap.Uint32("textureID", textureID))
		return
	}

	refCount--
	tm.textureRefCount[textureID] = refCount
	if refCount > 0 {
		return
	}

	tm.free(textureID)
	img := tm.textureImages[textureID]
	delete(tm.textureCache, img)
	delete(tm.textureRefCount, textureID)
	delete(tm.textureImages, textureID)
	tm.stats.TotalMemoryMB -= float64(len(img.Pix)*4) / (1 << 20)

	logger.Log.Debug("Texture freed",
		zap.Uint32("textureID", textureID),
		zap.String("name", img.Name))
}

// GetStats returns current texture manager statistics
func (tm *TextureManager) GetStats() TextureStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := tm.stats
	stats.ActiveTextures = len(tm.textureRefCount)
	return stats
}

// Clear releases all textures
func (tm *TextureManager) Clear() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	for textureID := range tm.textureRefCount {
		tm.free(textureID)
	}
	tm.textureCache = make(map[*texture.Image]uint32)
	tm.textureRefCount = make(map[uint32]int)
	tm.textureImages = make(map[uint32]*texture.Image)
	tm.stats.ActiveTextures = 0
	tm.stats.TotalMemoryMB = 0
}

// uploadFloatTexture uploads linear RGB float pixels with mipmaps so rough
// surfaces can sample blurrier levels.
func uploadFloatTexture(img *texture.Image) uint32 {
	var textureID uint32
	gl.GenTextures(1, &textureID)
	gl.BindTexture(gl.TEXTURE_2D, textureID)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGB16F, int32(img.Width), int32(img.Height), 0, gl.RGB, gl.FLOAT, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	return textureID
}
