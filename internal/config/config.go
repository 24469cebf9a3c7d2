package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	ContentDir    string            `mapstructure:"content_dir"`
	Storage       string            `mapstructure:"storage"`
	SQLitePath    string            `mapstructure:"sqlite_path"`
	DefaultPage   string            `mapstructure:"default_page"`
	Segmentation  string            `mapstructure:"segmentation"`
	Split         string            `mapstructure:"split"`
	AutosaveDelay time.Duration     `mapstructure:"autosave_delay"`
	CommitMessage string            `mapstructure:"commit_message"`
	LogFile       string            `mapstructure:"log_file"`
	LogLevel      string            `mapstructure:"log_level"`
	Colors        map[string]string `mapstructure:"colors"`
	ColorTitle    string            `mapstructure:"color_title"`
	ColorHeading  string            `mapstructure:"color_heading"`
	ColorLink     string            `mapstructure:"color_link"`
	ColorDim      string            `mapstructure:"color_dim"`
	ColorAccent   string            `mapstructure:"color_accent"`
	Browser       string            `mapstructure:"browser"`
}

// C is the global config instance
var C Config

// Init initializes configuration with viper
func Init() error {
	viper.SetDefault("content_dir", ".")
	viper.SetDefault("storage", "fs") // fs or sqlite
	viper.SetDefault("sqlite_path", "~/.local/share/pagemd/pagemd.db")
	viper.SetDefault("default_page", "landing")
	viper.SetDefault("segmentation", "sections") // sections or lines
	viper.SetDefault("split", "always")          // always or end
	viper.SetDefault("autosave_delay", "1500ms")
	viper.SetDefault("commit_message", "Update %s")
	viper.SetDefault("log_file", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("colors", map[string]string{})
	viper.SetDefault("color_title", "36")   // Cyan
	viper.SetDefault("color_heading", "33") // Yellow
	viper.SetDefault("color_link", "34")    // Blue
	viper.SetDefault("color_dim", "90")     // Gray
	viper.SetDefault("color_accent", "35")  // Magenta
	viper.SetDefault("browser", "")

	viper.SetConfigName("pagemd")
	viper.SetConfigType("yaml")

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "pagemd"))
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("PAGEMD")
	viper.AutomaticEnv()

	// Try to read config, but don't fail if not found or malformed
	_ = viper.ReadInConfig()

	return viper.Unmarshal(&C)
}

// GetContentDir returns the page directory with tilde expansion
func GetContentDir() string {
	return expandTilde(viper.GetString("content_dir"))
}

// GetSQLitePath returns the database path with tilde expansion
func GetSQLitePath() string {
	return expandTilde(viper.GetString("sqlite_path"))
}

// GetLogFile returns the log file path with tilde expansion
func GetLogFile() string {
	return expandTilde(viper.GetString("log_file"))
}

// expandTilde expands ~ to the user's home directory
func expandTilde(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetStorage returns the storage backend name
func GetStorage() string {
	return viper.GetString("storage")
}

// GetDefaultPage returns the page opened when none is given
func GetDefaultPage() string {
	return viper.GetString("default_page")
}

// GetSegmentation returns the block segmentation policy name
func GetSegmentation() string {
	return viper.GetString("segmentation")
}

// GetSplit returns the Enter split policy name
func GetSplit() string {
	return viper.GetString("split")
}

// GetAutosaveDelay returns the debounce before an automatic save
func GetAutosaveDelay() time.Duration {
	d := viper.GetDuration("autosave_delay")
	if d <= 0 {
		return 1500 * time.Millisecond
	}
	return d
}

// GetCommitMessage returns the save message format, %s is the page path
func GetCommitMessage() string {
	return viper.GetString("commit_message")
}

// GetLogLevel returns the log level name
func GetLogLevel() string {
	return viper.GetString("log_level")
}

// GetColors returns extra color names for colored text
func GetColors() map[string]string {
	return viper.GetStringMapString("colors")
}

// GetColorTitle returns the color for title blocks
func GetColorTitle() string {
	return viper.GetString("color_title")
}

// GetColorHeading returns the color for heading blocks
func GetColorHeading() string {
	return viper.GetString("color_heading")
}

// GetColorLink returns the color for links
func GetColorLink() string {
	return viper.GetString("color_link")
}

// GetColorDim returns the color for secondary text
func GetColorDim() string {
	return viper.GetString("color_dim")
}

// GetColorAccent returns the color for the selection and caret
func GetColorAccent() string {
	return viper.GetString("color_accent")
}

// GetBrowser returns the command used to open external links
func GetBrowser() string {
	return viper.GetString("browser")
}

// SetContentDir sets the page directory at runtime
func SetContentDir(dir string) {
	viper.Set("content_dir", dir)
	C.ContentDir = dir
}

// SetStorage sets the storage backend at runtime
func SetStorage(name string) {
	viper.Set("storage", name)
	C.Storage = name
}
