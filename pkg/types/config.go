// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the configuration, session and step types shared
// by the irca-engine stages, workflow controller and front end.
package types

import "time"

// StepTimeouts bounds how long each stage may run when executed as a
// subprocess.
type StepTimeouts struct {
	Base   time.Duration `json:"base" yaml:"base" mapstructure:"base"`
	Tags   time.Duration `json:"tags" yaml:"tags" mapstructure:"tags"`
	Render time.Duration `json:"render" yaml:"render" mapstructure:"render"`
	Photos time.Duration `json:"photos" yaml:"photos" mapstructure:"photos"`
}

// For returns the timeout configured for step.
func (t StepTimeouts) For(step Step) time.Duration {
	switch step {
	case StepBase:
		return t.Base
	case StepTags:
		return t.Tags
	case StepRender:
		return t.Render
	default:
		return t.Photos
	}
}

// ServerConfig holds settings for the web front end.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8501").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// PowerBIURL is the public embed URL of the IRCA Power BI report.
	PowerBIURL string `json:"powerbi_url" yaml:"powerbi_url" mapstructure:"powerbi_url"`
}

// LogConfig selects the zap logger level and encoder.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups every setting the pipeline and the front end need.
type Config struct {
	// DataDir holds one folder per city plus marker and session files.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// SourceDir holds the cleaned per-airport measurement workbooks.
	SourceDir string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir"`

	// TemplatesDir holds one Word template per city.
	TemplatesDir string `json:"templates_dir" yaml:"templates_dir" mapstructure:"templates_dir"`

	// IRCAFile is the risk-index dataset (semicolon CSV or xlsx).
	IRCAFile string `json:"irca_file" yaml:"irca_file" mapstructure:"irca_file"`

	// PhotosFile is the YAML photo manifest (city -> FOTOn -> path).
	PhotosFile string `json:"photos_file" yaml:"photos_file" mapstructure:"photos_file"`

	// TemplateYear is the year embedded in template file names
	// (Plantilla_AP_<ABBR>_<year>.docx).
	TemplateYear int `json:"template_year" yaml:"template_year" mapstructure:"template_year"`

	// Airports lists the known city names.
	Airports []string `json:"airports" yaml:"airports" mapstructure:"airports"`

	StepTimeouts StepTimeouts `json:"step_timeouts" yaml:"step_timeouts" mapstructure:"step_timeouts"`
	Server       ServerConfig `json:"server" yaml:"server" mapstructure:"server"`
	Log          LogConfig    `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultAirports is the list of cities served by the program.
var DefaultAirports = []string{
	"Aguachica", "Armenia", "Barranquilla", "Buenaventura",
	"Guapi", "Ipiales", "Pasto", "Popayan", "Tolu", "Tumaco",
	"San Andres", "Providencia",
}

// DefaultPowerBIURL is the public IRCA report embedded in the dashboard.
const DefaultPowerBIURL = "https://app.powerbi.com/view?r=eyJrIjoiMzE3NDAzYTgtYmIwYi00NGM1LTg1MDgtMDc3MmQ3M2NlYTI1IiwidCI6ImE1YjMzYzBiLTA2NTItNDU2MC1iOTcyLTRiZDAyMTcyZDY1NSJ9"

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		DataDir:      "Datos",
		SourceDir:    "Resultados_por_Aeropuerto",
		TemplatesDir: "Plantillas",
		IRCAFile:     "Datos/IRCA(%).csv",
		PhotosFile:   "fotos.yaml",
		TemplateYear: 2025,
		Airports:     append([]string(nil), DefaultAirports...),
		StepTimeouts: StepTimeouts{
			Base:   5 * time.Minute,
			Tags:   10 * time.Minute,
			Render: 15 * time.Minute,
			Photos: time.Minute,
		},
		Server: ServerConfig{Addr: ":8501", PowerBIURL: DefaultPowerBIURL},
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}
