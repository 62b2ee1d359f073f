package config

import "time"

// File is the on-disk configuration shape
type File struct {
	FailFast bool      `koanf:"fail_fast"`
	Jobs     int       `koanf:"jobs"`
	Repos    []Repo    `koanf:"repo"`
	Links    []Link    `koanf:"link"`
	Commands []Command `koanf:"command"`
}

// Repo is a [[repo]] entry
type Repo struct {
	ID     string   `koanf:"id"`
	Needs  []string `koanf:"needs"`
	URL    string   `koanf:"url"`
	Path   string   `koanf:"path"`
	Branch string   `koanf:"branch"`
	Remote string   `koanf:"remote"`
}

// Link is a [[link]] entry
type Link struct {
	ID         string     `koanf:"id"`
	Needs      []string   `koanf:"needs"`
	SourceRoot string     `koanf:"source_root"`
	TargetDir  string     `koanf:"target_dir"`
	BackupDir  string     `koanf:"backup_dir"`
	Conflict   string     `koanf:"conflict"`
	Ignore     []string   `koanf:"ignore"`
	Files      []LinkFile `koanf:"files"`
}

// LinkFile is one explicit source/target pair of a link group
type LinkFile struct {
	Source string `koanf:"source"`
	Target string `koanf:"target"`
}

// Command is a [[command]] entry
type Command struct {
	ID      string            `koanf:"id"`
	Needs   []string          `koanf:"needs"`
	Run     string            `koanf:"run"`
	Shell   string            `koanf:"shell"`
	Dir     string            `koanf:"dir"`
	Env     map[string]string `koanf:"env"`
	Timeout time.Duration     `koanf:"timeout"`
}

// DefaultJobs bounds the worker pool when the file does not
const DefaultJobs = 4

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"fail_fast": false,
		"jobs":      DefaultJobs,
	}
}
