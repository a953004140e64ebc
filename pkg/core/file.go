package core

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// FileLocation identifies the storage system a file lives in.
type FileLocation string

// Supported file locations.
const (
	LocationLocal FileLocation = "local"
	LocationGS    FileLocation = "gs"
	LocationS3    FileLocation = "s3"
	LocationWASB  FileLocation = "wasb"
	LocationWASBS FileLocation = "wasbs"
	LocationHTTP  FileLocation = "http"
	LocationHTTPS FileLocation = "https"
)

// FileType identifies the serialization format of a file.
type FileType string

// Supported file types.
const (
	TypeCSV     FileType = "csv"
	TypeJSON    FileType = "json"
	TypeNDJSON  FileType = "ndjson"
	TypeParquet FileType = "parquet"
)

var locationsByScheme = map[string]FileLocation{
	"":      LocationLocal,
	"file":  LocationLocal,
	"gs":    LocationGS,
	"s3":    LocationS3,
	"wasb":  LocationWASB,
	"wasbs": LocationWASBS,
	"http":  LocationHTTP,
	"https": LocationHTTPS,
}

var typesByExtension = map[string]FileType{
	".csv":     TypeCSV,
	".json":    TypeJSON,
	".ndjson":  TypeNDJSON,
	".jsonl":   TypeNDJSON,
	".parquet": TypeParquet,
}

// File references a data file in local or remote storage.
type File struct {
	Path     string       `json:"path" yaml:"path"`
	ConnID   string       `json:"conn_id,omitempty" yaml:"conn_id,omitempty"`
	Location FileLocation `json:"location" yaml:"location"`
	Type     FileType     `json:"type" yaml:"type"`
}

// NewFile creates a file reference, deriving location from the URL scheme and
// type from the extension. A non-empty fileType overrides extension detection.
func NewFile(filePath, connID string, fileType FileType) (File, error) {
	loc, err := DetectLocation(filePath)
	if err != nil {
		return File{}, err
	}
	if fileType == "" {
		fileType, err = DetectType(filePath)
		if err != nil {
			return File{}, err
		}
	} else if !fileType.Valid() {
		return File{}, fmt.Errorf("unsupported file type %q", fileType)
	}
	return File{Path: filePath, ConnID: connID, Location: loc, Type: fileType}, nil
}

// DetectLocation returns the storage location encoded in the path's URL scheme.
// Plain paths are local.
func DetectLocation(filePath string) (FileLocation, error) {
	scheme := ""
	if i := strings.Index(filePath, "://"); i > 0 {
		u, err := url.Parse(filePath)
		if err != nil {
			return "", fmt.Errorf("invalid file path %q: %w", filePath, err)
		}
		scheme = strings.ToLower(u.Scheme)
	}
	loc, ok := locationsByScheme[scheme]
	if !ok {
		return "", fmt.Errorf("unsupported file location %q in %q", scheme, filePath)
	}
	return loc, nil
}

// DetectType returns the file type for the path's extension.
func DetectType(filePath string) (FileType, error) {
	p := filePath
	if u, err := url.Parse(filePath); err == nil && u.Scheme != "" {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	t, ok := typesByExtension[ext]
	if !ok {
		return "", fmt.Errorf("unable to detect file type of %q", filePath)
	}
	return t, nil
}

// Valid reports whether t is a supported file type.
func (t FileType) Valid() bool {
	switch t {
	case TypeCSV, TypeJSON, TypeNDJSON, TypeParquet:
		return true
	}
	return false
}

// IsRemote reports whether the location requires network access.
func (l FileLocation) IsRemote() bool {
	return l != LocationLocal
}

// IsPattern reports whether the path contains glob metacharacters.
func (f File) IsPattern() bool {
	return strings.ContainsAny(f.Path, "*?[")
}

func (f File) String() string {
	return fmt.Sprintf("File(path=%s, conn_id=%s, location=%s, type=%s)", f.Path, f.ConnID, f.Location, f.Type)
}
