package service

import (
	"errors"
	"fmt"
	"strconv"
)

// Name identifies one of the two fixed model services managed by miroctl.
type Name string

const (
	Image Name = "miroimage" // image-editing model server
	Shape Name = "miroshape" // image-to-3D shape-generation model server
)

// All returns the managed services in launch order.
func All() []Name { return []Name{Image, Shape} }

// ErrUnknown reports a service selector outside the fixed catalog.
var ErrUnknown = errors.New("unknown service")

// Parse validates a user-supplied service selector.
func Parse(s string) (Name, error) {
	switch Name(s) {
	case Image, Shape:
		return Name(s), nil
	default:
		return "", fmt.Errorf("%w %q (expected %s or %s)", ErrUnknown, s, Image, Shape)
	}
}

// Fixed inference parameters for the image-editing service. These are part of
// the launch contract but intentionally not exposed as configuration.
const (
	imageInferenceSteps = 50
	imageCFGScale       = "4.0"
	imageGuidanceScale  = "1.0"
	imageLayers         = 4
	imageResolution     = 640
)

// ImageConfig holds the launch configuration for the image-editing server.
type ImageConfig struct {
	GPU       string `json:"gpu" mapstructure:"gpu"`
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	ModelPath string `json:"model_path" mapstructure:"model_path"`
	ModelName string `json:"model_name" mapstructure:"model_name"`
	Command   string `json:"command" mapstructure:"command"`
}

// ShapeConfig holds the launch configuration for the shape-generation server.
type ShapeConfig struct {
	GPU       string `json:"gpu" mapstructure:"gpu"`
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	ModelPath string `json:"model_path" mapstructure:"model_path"`
	OutputDir string `json:"output_dir" mapstructure:"output_dir"`
	Command   string `json:"command" mapstructure:"command"`
}

// DefaultImage returns the documented defaults for the image-editing server.
func DefaultImage() ImageConfig {
	return ImageConfig{
		GPU:       "0",
		Host:      "0.0.0.0",
		Port:      8081,
		ModelPath: "Qwen/Qwen-Image-Edit-2511",
		ModelName: "Qwen-Image-Edit-2511",
		Command:   "python3 servers/miroimage_server.py",
	}
}

// DefaultShape returns the documented defaults for the shape-generation server.
func DefaultShape() ShapeConfig {
	return ShapeConfig{
		GPU:       "1",
		Host:      "0.0.0.0",
		Port:      8080,
		ModelPath: "IntimeAI/Miro",
		OutputDir: "./output/output_shape",
		Command:   "python3 servers/miroshape_server.py",
	}
}

// Spec is the launch description the supervisor consumes: which service,
// what command to run, and the environment contract the child expects.
type Spec struct {
	Name    Name     `json:"name"`
	Command string   `json:"command"`
	Host    string   `json:"host"`
	Port    int      `json:"port"`
	Env     []string `json:"env"` // KEY=VALUE pairs appended over the OS environment
}

// Spec composes the environment contract consumed by miroimage_server.
func (c ImageConfig) Spec() Spec {
	env := []string{
		"CUDA_VISIBLE_DEVICES=" + c.GPU,
		"MIROIMAGE_HOST=" + c.Host,
		"MIROIMAGE_PORT=" + strconv.Itoa(c.Port),
		"MIROIMAGE_MODEL_PATH=" + c.ModelPath,
		"MIROIMAGE_MODEL_NAME=" + c.ModelName,
		"MIROIMAGE_NUM_INFERENCE_STEPS=" + strconv.Itoa(imageInferenceSteps),
		"MIROIMAGE_CFG_SCALE=" + imageCFGScale,
		"MIROIMAGE_GUIDANCE_SCALE=" + imageGuidanceScale,
		"MIROIMAGE_LAYERS=" + strconv.Itoa(imageLayers),
		"MIROIMAGE_RESOLUTION=" + strconv.Itoa(imageResolution),
	}
	return Spec{Name: Image, Command: c.Command, Host: c.Host, Port: c.Port, Env: env}
}

// Spec composes the environment contract consumed by miroshape_server.
func (c ShapeConfig) Spec() Spec {
	env := []string{
		"CUDA_VISIBLE_DEVICES=" + c.GPU,
		"MIROSHAPE_HOST=" + c.Host,
		"MIROSHAPE_PORT=" + strconv.Itoa(c.Port),
		"MIROSHAPE_MODEL_PATH=" + c.ModelPath,
		"MIROSHAPE_OUTPUT_DIR=" + c.OutputDir,
	}
	return Spec{Name: Shape, Command: c.Command, Host: c.Host, Port: c.Port, Env: env}
}
