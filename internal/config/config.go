// Package config handles engine configuration loading.
package config

// Config holds all engine settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Physics  PhysicsConfig  `yaml:"physics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and device settings.
type GraphicsConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	VSync           bool   `yaml:"vsync"`
	Title           string `yaml:"title"`
	Headless        bool   `yaml:"headless"`
	HighPerformance bool   `yaml:"high_performance"`
}

// PhysicsConfig holds simulation tuning.
type PhysicsConfig struct {
	GravityY              float32 `yaml:"gravity_y"`
	FixedTimeStep         float32 `yaml:"fixed_timestep"`
	VelocityIterations    int     `yaml:"velocity_iterations"`
	PositionIterations    int     `yaml:"position_iterations"`
	SleepEnabled          bool    `yaml:"sleep_enabled"`
	SleepTime             float32 `yaml:"sleep_time"`
	GPUBroadPhase         bool    `yaml:"gpu_broadphase"`
	GPUBroadPhaseBodies   int     `yaml:"gpu_broadphase_bodies"`
	GPUBroadPhaseMinCount int     `yaml:"gpu_broadphase_min_count"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
			Title:  "helix3d",
		},
		Physics: PhysicsConfig{
			GravityY:              -9.81,
			FixedTimeStep:         1.0 / 60.0,
			VelocityIterations:    8,
			PositionIterations:    3,
			SleepEnabled:          true,
			SleepTime:             0.5,
			GPUBroadPhase:         false,
			GPUBroadPhaseBodies:   4096,
			GPUBroadPhaseMinCount: 512,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
