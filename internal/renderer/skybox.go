package renderer

import (
	"GlassView/internal/texture"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// Skybox draws the scene background from an equirectangular environment image
// with a single fullscreen triangle.
type Skybox struct {
	VAO       uint32
	Shader    Shader
	Intensity float32
}

// CreateSkybox compiles the background program.
func CreateSkybox() (*Skybox, error) {
	skybox := &Skybox{Shader: backgroundShader(), Intensity: 1}
	if err := skybox.Shader.Compile(); err != nil {
		return nil, err
	}
	gl.GenVertexArrays(1, &skybox.VAO)
	return skybox, nil
}

// Render draws env behind everything already in the depth buffer. A nil env draws
// nothing and leaves the clear colour.
func (s *Skybox) Render(textures *TextureManager, env *texture.Image, view, projection mgl32.Mat4, output *OutputParams) {
	if env == nil {
		return
	}
	id, ok := textures.Lookup(env)
	if !ok {
		return
	}

	// Rotation only, so the background stays at infinity.
	view[12], view[13], view[14] = 0, 0, 0

	s.Shader.Use()
	u := s.Shader.uniforms
	u.SetMat4("invViewProjection", projection.Mul4(view).Inv())
	u.SetFloat("intensity", s.Intensity)
	if output != nil {
		u.SetInt("toneMapping", int32(output.ToneMapping))
		u.SetFloat("exposure", output.Exposure)
	} else {
		u.SetInt("toneMapping", -1)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	u.SetInt("envMap", 0)

	gl.DepthMask(false)
	gl.DepthFunc(gl.LEQUAL)
	gl.BindVertexArray(s.VAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.DepthMask(true)
	gl.DepthFunc(gl.LESS)
}

// Cleanup cleans up skybox resources
func (s *Skybox) Cleanup() {
	gl.DeleteVertexArrays(1, &s.VAO)
	s.Shader.Delete()
}
