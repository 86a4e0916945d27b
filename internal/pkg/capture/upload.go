package capture

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/airenas/scribe/internal/pkg/api"
	"github.com/airenas/scribe/internal/pkg/utils"
)

// FileLoader turns a user selected file into a resource
type FileLoader struct {
	durationOf func(ctx context.Context, path string) (float64, error)
}

// NewFileLoader creates loader that falls back to ffprobe for non WAV media
func NewFileLoader() *FileLoader {
	return &FileLoader{durationOf: ffprobeDuration}
}

// Load validates the file type and reads its duration
func (l *FileLoader) Load(ctx context.Context, path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", path, err)
	}
	mt := DetectMime(path, data)
	if !utils.IsAudioMime(mt) {
		return nil, fmt.Errorf("%w: %s is %s", api.ErrInvalidFileType, filepath.Base(path), mt)
	}
	var d float64
	if isWAV(data) {
		d, err = wavDuration(data)
	} else {
		d, err = l.durationOf(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrDecode, err)
	}
	return &Resource{Data: data, MimeType: mt, FileName: filepath.Base(path), Duration: seconds(d)}, nil
}

// DetectMime returns mime type by the known audio extension or by the content
func DetectMime(name string, data []byte) string {
	if utils.SupportAudioExt(filepath.Ext(name)) {
		return utils.MimeByName(name)
	}
	res := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(res); err == nil {
		return mt
	}
	return res
}

func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

var errInvalidWAV = errors.New("invalid wav")

// wavDuration reads duration from the RIFF header, data size is clamped to the bytes present
func wavDuration(data []byte) (float64, error) {
	if !isWAV(data) {
		return 0, errInvalidWAV
	}
	var byteRate uint32
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int64(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		start := pos + 8
		switch id {
		case "fmt ":
			if size < 16 || start+16 > len(data) {
				return 0, fmt.Errorf("%w: short fmt chunk", errInvalidWAV)
			}
			byteRate = binary.LittleEndian.Uint32(data[start+8 : start+12])
		case "data":
			if byteRate == 0 {
				return 0, fmt.Errorf("%w: no fmt chunk before data", errInvalidWAV)
			}
			avail := int64(len(data) - start)
			if size > avail {
				size = avail
			}
			return float64(size) / float64(byteRate), nil
		}
		next := int64(start) + size + size%2
		if next > int64(len(data)) {
			break
		}
		pos = int(next)
	}
	return 0, fmt.Errorf("%w: no data chunk", errInvalidWAV)
}

func ffprobeDuration(ctx context.Context, path string) (float64, error) {
	if !commandAvailable("ffprobe") {
		return 0, errors.New("ffprobe not found")
	}
	out, err := commandOutput(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	if err != nil {
		return 0, err
	}
	return parseProbe(out)
}

func parseProbe(out string) (float64, error) {
	s := strings.TrimSpace(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	res, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("wrong duration '%s'", s)
	}
	if res < 0 {
		return 0, fmt.Errorf("wrong duration '%s'", s)
	}
	return res, nil
}

