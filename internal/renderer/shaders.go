package renderer

import (
	"fmt"
	"strings"

	"GlassView/internal/logger"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"
)

// =============================================================
//
//	Shaders
//
// =============================================================
type Shader struct {
	name           string
	vertexSource   string
	fragmentSource string
	program        uint32
	uniforms       *UniformCache
}

// Compile builds the program. It may only run with a current GL context.
func (shader *Shader) Compile() error {
	vs, err := genShader(shader.vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return fmt.Errorf("%s vertex shader: %w", shader.name, err)
	}
	fs, err := genShader(shader.fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return fmt.Errorf("%s fragment shader: %w", shader.name, err)
	}
	program, err := genShaderProgram(vs, fs)
	if err != nil {
		return fmt.Errorf("%s program: %w", shader.name, err)
	}
	shader.program = program
	shader.uniforms = NewUniformCache(program)
	logger.Log.Debug("Shader compiled", zap.String("shader", shader.name), zap.Uint32("program", program))
	return nil
}

func (shader *Shader) Use() {
	gl.UseProgram(shader.program)
}

func (shader *Shader) Delete() {
	if shader.program != 0 {
		gl.DeleteProgram(shader.program)
		shader.program = 0
	}
}

func genShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func genShaderProgram(vertexShader, fragmentShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertexShader)
	gl.AttachShader(program, fragmentShader)
	gl.LinkProgram(program)
	gl.DetachShader(program, vertexShader)
	gl.DeleteShader(vertexShader)
	gl.DetachShader(program, fragmentShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link: %s", strings.TrimRight(log, "\x00"))
	}
	return program, nil
}

// Shared GLSL helpers, prepended to the fragment shaders that need them.
const glslCommon = `
const float PI = 3.14159265359;

vec2 equirectUV(vec3 d) {
    d = normalize(d);
    return vec2(0.5 + atan(d.x, -d.z) / (2.0 * PI), acos(clamp(d.y, -1.0, 1.0)) / PI);
}

vec3 toneMap(vec3 c, int mode, float exposure) {
    c *= exposure;
    if (mode == 0) {
        c = clamp((c * (2.51 * c + 0.03)) / (c * (2.43 * c + 0.59) + 0.14), 0.0, 1.0);
    } else if (mode == 1) {
        c = c / (1.0 + c);
    }
    return clamp(c, 0.0, 1.0);
}

vec3 linearToSRGB(vec3 c) {
    vec3 lo = c * 12.92;
    vec3 hi = 1.055 * pow(c, vec3(1.0 / 2.4)) - 0.055;
    return mix(lo, hi, step(vec3(0.0031308), c));
}
`

var sceneVertexSource = `#version 410 core

layout(location = 0) in vec3 inPosition;
layout(location = 1) in vec3 inNormal;
layout(location = 2) in vec2 inTexCoord;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;

out vec3 FragPos;
out vec3 Normal;
out vec3 ViewNormal;
out vec2 TexCoord;
out float ViewDepth;

void main() {
    vec4 world = model * vec4(inPosition, 1.0);
    mat3 normalMatrix = transpose(inverse(mat3(model)));
    FragPos = world.xyz;
    Normal = normalMatrix * inNormal;
    ViewNormal = mat3(view) * Normal;
    TexCoord = inTexCoord;
    vec4 viewPos = view * world;
    ViewDepth = -viewPos.z;
    gl_Position = projection * viewPos;
}
`

var sceneFragmentSource = `#version 410 core
` + glslCommon + `
in vec3 FragPos;
in vec3 Normal;
in vec3 ViewNormal;
in vec2 TexCoord;
in float ViewDepth;

uniform vec3 eye;

uniform vec3 color;
uniform float transmission;
uniform float opacity;
uniform float metalness;
uniform float roughness;
uniform float ior;
uniform float thickness;
uniform vec3 attenuationColor;
uniform float attenuationDistance;
uniform float specularIntensity;
uniform vec3 specularColor;
uniform float envMapIntensity;
uniform bool doubleSided;

uniform int envSource;          // 0 none, 1 scene equirect, 2 capture cube
uniform sampler2D envMap;
uniform samplerCube cubeMap;
uniform bool useThicknessMap;
uniform sampler2D thicknessMap;

uniform vec3 ambientColor;

uniform bool useMirror;
uniform sampler2D mirrorMap;
uniform mat4 mirrorMatrix;

uniform int toneMapping;        // -1 keep linear
uniform float exposure;
uniform bool writeRoughness;

layout(location = 0) out vec4 FragColor;
layout(location = 1) out vec4 NormalDepth;

vec3 sampleEnv(vec3 dir, float lod) {
    if (envSource == 1) {
        return textureLod(envMap, equirectUV(dir), lod).rgb;
    } else if (envSource == 2) {
        return textureLod(cubeMap, dir, lod).rgb;
    }
    return ambientColor;
}

void main() {
    vec3 N = normalize(Normal);
    vec3 V = normalize(eye - FragPos);
    if (doubleSided && !gl_FrontFacing) {
        N = -N;
    }
    float NdotV = max(dot(N, V), 1e-4);
    float lod = roughness * 6.0;

    float t = thickness;
    if (useThicknessMap) {
        t *= texture(thicknessMap, TexCoord).g;
    }

    float f0s = pow((ior - 1.0) / (ior + 1.0), 2.0) * specularIntensity;
    vec3 F0 = mix(vec3(f0s) * specularColor, color, metalness);
    vec3 F = F0 + (1.0 - F0) * pow(1.0 - NdotV, 5.0);

    vec3 reflected = sampleEnv(reflect(-V, N), lod) * envMapIntensity;
    if (useMirror) {
        vec4 proj = mirrorMatrix * vec4(FragPos, 1.0);
        reflected = mix(reflected, textureProj(mirrorMap, proj).rgb, 1.0 - roughness);
    }

    vec3 refracted = sampleEnv(refract(-V, N, 1.0 / ior), lod) * envMapIntensity;
    vec3 absorbance = -log(max(attenuationColor, vec3(1e-4))) / max(attenuationDistance, 1e-4);
    vec3 transmitted = refracted * exp(-absorbance * t) * color;

    vec3 diffuse = color * (1.0 - metalness) * (ambientColor + sampleEnv(N, 6.0) * envMapIntensity) / PI;
    vec3 base = mix(diffuse, transmitted, transmission);
    vec3 result = base * (1.0 - F) + reflected * F;

    float alpha = clamp(opacity + transmission * (1.0 - opacity), 0.0, 1.0);
    if (toneMapping >= 0) {
        result = linearToSRGB(toneMap(result, toneMapping, exposure));
    }
    FragColor = vec4(result, writeRoughness ? roughness : alpha);
    NormalDepth = vec4(normalize(ViewNormal), ViewDepth);
}
`

// Fullscreen triangle without vertex buffers.
var fullscreenVertexSource = `#version 410 core
out vec2 UV;
void main() {
    vec2 p = vec2((gl_VertexID << 1) & 2, gl_VertexID & 2);
    UV = p;
    gl_Position = vec4(p * 2.0 - 1.0, 0.0, 1.0);
}
`

var backgroundFragmentSource = `#version 410 core
` + glslCommon + `
in vec2 UV;
uniform mat4 invViewProjection;
uniform sampler2D envMap;
uniform float intensity;
uniform int toneMapping;
uniform float exposure;
out vec4 FragColor;

void main() {
    vec4 p = invViewProjection * vec4(UV * 2.0 - 1.0, 1.0, 1.0);
    vec3 dir = normalize(p.xyz / p.w);
    vec3 c = texture(envMap, equirectUV(dir)).rgb * intensity;
    if (toneMapping >= 0) {
        c = linearToSRGB(toneMap(c, toneMapping, exposure));
    }
    FragColor = vec4(c, 1.0);
}
`

var ssrFragmentSource = `#version 410 core
in vec2 UV;
uniform sampler2D colorMap;       // rgb linear colour, a roughness
uniform sampler2D normalDepthMap; // rgb view normal, a linear depth
uniform mat4 projection;
uniform mat4 invProjection;
uniform float roughnessFalloff;
uniform float thickness;
uniform float maxDistance;
uniform int steps;
uniform float intensity;
out vec4 FragColor;

vec3 viewPosition(vec2 uv, float depth) {
    vec4 p = invProjection * vec4(uv * 2.0 - 1.0, 0.0, 1.0);
    vec3 ray = p.xyz / p.w;
    return ray * (depth / -ray.z);
}

void main() {
    vec4 base = texture(colorMap, UV);
    vec4 nd = texture(normalDepthMap, UV);
    if (nd.a <= 0.0) {
        FragColor = vec4(base.rgb, 1.0);
        return;
    }
    float weight = pow(1.0 - clamp(base.a, 0.0, 1.0), roughnessFalloff) * intensity;
    if (weight <= 0.001) {
        FragColor = vec4(base.rgb, 1.0);
        return;
    }

    vec3 P = viewPosition(UV, nd.a);
    vec3 R = normalize(reflect(normalize(P), normalize(nd.rgb)));
    float stepLen = maxDistance / float(steps);
    vec3 hit = vec3(0.0);
    float found = 0.0;
    for (int i = 1; i <= steps; i++) {
        vec3 q = P + R * stepLen * float(i);
        vec4 c = projection * vec4(q, 1.0);
        vec2 uv = c.xy / c.w * 0.5 + 0.5;
        if (uv.x < 0.0 || uv.x > 1.0 || uv.y < 0.0 || uv.y > 1.0) {
            break;
        }
        float sceneDepth = texture(normalDepthMap, uv).a;
        float diff = -q.z - sceneDepth;
        if (sceneDepth > 0.0 && diff > 0.0 && diff < thickness) {
            hit = texture(colorMap, uv).rgb;
            vec2 edge = smoothstep(0.0, 0.1, uv) * (1.0 - smoothstep(0.9, 1.0, uv));
            found = edge.x * edge.y * (1.0 - float(i) / float(steps));
            break;
        }
    }
    FragColor = vec4(base.rgb + hit * found * weight, 1.0);
}
`

var outputFragmentSource = `#version 410 core
` + glslCommon + `
in vec2 UV;
uniform sampler2D source;
uniform int toneMapping;
uniform float exposure;
out vec4 FragColor;

void main() {
    vec3 c = texture(source, UV).rgb;
    FragColor = vec4(linearToSRGB(toneMap(c, toneMapping, exposure)), 1.0);
}
`

func sceneShader() Shader {
	return Shader{name: "scene", vertexSource: sceneVertexSource, fragmentSource: sceneFragmentSource}
}

func backgroundShader() Shader {
	return Shader{name: "background", vertexSource: fullscreenVertexSource, fragmentSource: backgroundFragmentSource}
}

func ssrShader() Shader {
	return Shader{name: "ssr", vertexSource: fullscreenVertexSource, fragmentSource: ssrFragmentSource}
}

func outputShader() Shader {
	return Shader{name: "output", vertexSource: fullscreenVertexSource, fragmentSource: outputFragmentSource}
}
