package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Save modes accepted in the save_mode key.
const (
	ModeDocx   = "docx"
	ModeFolder = "folder"
)

// Config holds every persisted Click setting. It is read once when a session
// is constructed.
type Config struct {
	SaveDir     string // base output directory
	Filename    string // artifact base name, without extension
	SaveMode    string // "docx" | "folder"
	MaxSize     string // megabytes as typed by the user; "" or garbage = unlimited
	SaveByDate  bool   // nest output under a dd-mm-YYYY directory
	LogTitle    bool   // caption captures with the foreground window title
	AppendNum   bool   // caption captures with their sequence number
	AutoCopy    bool   // mirror every capture to the clipboard
	CopyFiles   bool   // clipboard mirror includes a file-drop list
	CopyImage   bool   // clipboard mirror includes the bitmap
	ClipHistory bool   // copy-all replays each image for clipboard history
}

// Defaults returns the settings used when no sidecar file exists.
func Defaults() Config {
	dir := "Evidence"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, "Desktop", "Evidence")
	}
	return Config{
		SaveDir:    dir,
		Filename:   "screenshot",
		SaveMode:   ModeDocx,
		SaveByDate: true,
		AppendNum:  true,
		CopyFiles:  true,
		CopyImage:  true,
	}
}

// Path returns the location of the settings sidecar file,
// ~/.config/click/config.toon.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "click", "config.toon"), nil
}

// Load reads the sidecar file at path. A missing file yields Defaults().
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d := Defaults()
			return &d, nil
		}
		return nil, err
	}
	var kv map[string]string
	if err := yaml.Unmarshal(data, &kv); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	cfg := Defaults()
	for k, v := range kv {
		cfg.Set(k, v)
	}
	return &cfg, nil
}

// LoadDefault loads the sidecar file from Path().
func LoadDefault() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	return Load(p)
}

// Keys lists the settings keys in file order.
var Keys = []string{
	"filename", "save_dir", "max_size", "save_by_date", "save_mode",
	"log_title", "append_num", "auto_copy", "copy_files", "copy_image", "clip_history",
}

// Get returns the textual value of key, booleans rendered as True/False.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case "filename":
		return c.Filename, true
	case "save_dir":
		return c.SaveDir, true
	case "max_size":
		return c.MaxSize, true
	case "save_mode":
		return c.SaveMode, true
	}
	if b := c.boolField(key); b != nil {
		return formatBool(*b), true
	}
	return "", false
}

// Set assigns key from its textual form. Unknown keys and unparseable
// booleans are ignored, matching how the file has always been read.
func (c *Config) Set(key, value string) bool {
	value = strings.TrimSpace(value)
	switch key {
	case "filename":
		c.Filename = value
	case "save_dir":
		c.SaveDir = value
	case "max_size":
		c.MaxSize = value
	case "save_mode":
		if value == ModeFolder {
			c.SaveMode = ModeFolder
		} else {
			c.SaveMode = ModeDocx
		}
	default:
		b := c.boolField(key)
		if b == nil {
			return false
		}
		v, err := strconv.ParseBool(value)
		if err != nil {
			return false
		}
		*b = v
	}
	return true
}

func (c *Config) boolField(key string) *bool {
	switch key {
	case "save_by_date":
		return &c.SaveByDate
	case "log_title":
		return &c.LogTitle
	case "append_num":
		return &c.AppendNum
	case "auto_copy":
		return &c.AutoCopy
	case "copy_files":
		return &c.CopyFiles
	case "copy_image":
		return &c.CopyImage
	case "clip_history":
		return &c.ClipHistory
	}
	return nil
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Save writes cfg as "key: value" lines via a temp file and os.Rename.
func Save(path string, cfg *Config) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	var sb strings.Builder
	for _, k := range Keys {
		v, _ := cfg.Get(k)
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "config-*.toon.tmp")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()
	if _, err = tmp.WriteString(sb.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Overrides carries command-line values; nil fields leave the file value.
type Overrides struct {
	SaveDir     *string
	Filename    *string
	SaveMode    *string
	MaxSize     *string
	SaveByDate  *bool
	LogTitle    *bool
	AppendNum   *bool
	AutoCopy    *bool
	CopyFiles   *bool
	CopyImage   *bool
	ClipHistory *bool
}

// Merge applies overrides on top of file, and file on top of Defaults().
func Merge(file *Config, o Overrides) Config {
	result := Defaults()
	if file != nil {
		result = *file
	}

	str := func(dst *string, src *string) {
		if src != nil && strings.TrimSpace(*src) != "" {
			*dst = strings.TrimSpace(*src)
		}
	}
	flag := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	str(&result.SaveDir, o.SaveDir)
	str(&result.Filename, o.Filename)
	str(&result.SaveMode, o.SaveMode)
	if o.MaxSize != nil {
		result.MaxSize = strings.TrimSpace(*o.MaxSize)
	}
	flag(&result.SaveByDate, o.SaveByDate)
	flag(&result.LogTitle, o.LogTitle)
	flag(&result.AppendNum, o.AppendNum)
	flag(&result.AutoCopy, o.AutoCopy)
	flag(&result.CopyFiles, o.CopyFiles)
	flag(&result.CopyImage, o.CopyImage)
	flag(&result.ClipHistory, o.ClipHistory)

	result.Normalize()
	return result
}

// Normalize repairs combinations the UI never allowed: an empty file name,
// an unknown save mode, and auto-copy with nothing to copy.
func (c *Config) Normalize() {
	if strings.TrimSpace(c.Filename) == "" {
		c.Filename = "screenshot"
	}
	if c.SaveMode != ModeFolder {
		c.SaveMode = ModeDocx
	}
	if c.AutoCopy && !c.CopyFiles && !c.CopyImage {
		c.CopyImage = true
	}
}

// maxSizeMB caps the size limit at 1 TiB; anything larger means no limit.
const maxSizeMB = 1 << 20

// MaxSizeBytes converts MaxSize (megabytes) to bytes. Anything that does not
// parse as a positive finite number up to maxSizeMB means "no limit" and
// returns 0.
func (c *Config) MaxSizeBytes() int64 {
	mb, err := strconv.ParseFloat(strings.TrimSpace(c.MaxSize), 64)
	if err != nil || math.IsNaN(mb) || math.IsInf(mb, 0) || mb <= 0 || mb > maxSizeMB {
		return 0
	}
	return int64(mb * 1024 * 1024)
}

// Folder reports whether the config selects the flat image folder artifact.
func (c *Config) Folder() bool {
	return c.SaveMode == ModeFolder
}

var datePattern = regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`)

// DateLayout is the dd-mm-YYYY directory name used by save-by-date.
const DateLayout = "02-01-2006"

// DatedDir returns the directory captures go to when SaveByDate is set.
// A base that already ends in today's date is kept; a stale date element is
// replaced; otherwise today's date is appended.
func DatedDir(base string, now time.Time) string {
	today := now.Format(DateLayout)
	loc := datePattern.FindStringSubmatchIndex(base)
	if loc == nil {
		return filepath.Join(base, today)
	}
	if base[loc[2]:loc[3]] == today {
		return base
	}
	prefix := strings.TrimRight(base[:loc[2]], `/\`)
	return filepath.Join(prefix, today)
}

// SaveDirFor returns the effective output directory for cfg at time now.
func (c *Config) SaveDirFor(now time.Time) string {
	if c.SaveByDate {
		return DatedDir(c.SaveDir, now)
	}
	return c.SaveDir
}

// Pairs returns the settings as sorted key/value pairs, for display.
func (c *Config) Pairs() [][2]string {
	keys := append([]string(nil), Keys...)
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		v, _ := c.Get(k)
		out = append(out, [2]string{k, v})
	}
	return out
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
