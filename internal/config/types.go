package config

import "time"

// Settings holds connection settings for the administrative and S3 APIs.
// Field names in the YAML file follow the established settings-file format:
// base_uri, domain_name, tenancy_name.
type Settings struct {
	BaseURI     string        `yaml:"base_uri"`
	DomainName  string        `yaml:"domain_name"`
	TenancyName string        `yaml:"tenancy_name"`
	Timeout     time.Duration `yaml:"timeout"`
	S3          S3Settings    `yaml:"s3"`
	Audit       AuditSettings `yaml:"audit"`
}

// S3Settings holds native S3 API connection settings
type S3Settings struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// AuditSettings holds API-call audit logging settings
type AuditSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Output   string `yaml:"output"` // stdout, file, or both
	FilePath string `yaml:"file_path"`
}

// Credentials holds the contents of a JSON credentials file. Passwd may be
// omitted, in which case the caller is expected to prompt for it.
type Credentials struct {
	Username string `json:"username"`
	Passwd   string `json:"passwd"`
}
