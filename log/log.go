package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog     zerolog.Logger
	diagFile    *os.File
	captureFile *os.File
	logMu       sync.Mutex
	logReady    bool
	pid         int
	dir         string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: VX2_LOG_PATH environment variable
	if envPath := os.Getenv("VX2_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	capturePath := filepath.Join(dir, "capture_log.txt")
	captureFile, err = os.OpenFile(capturePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if captureFile != nil {
		captureFile.Close()
		captureFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(port, line string, sampleRate, frameSize uint32, dest string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("port", port).
		Str("line", line).
		Uint32("rate", sampleRate).
		Uint32("frame", frameSize).
		Str("out", dest).
		Msg("session_start")
}

func SessionEnd(captures int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("captures", captures).
		Msg("session_end")
}

// SerialEvent records connect and disconnect outcomes. err may be nil.
func SerialEvent(event, endpoint string, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if err != nil {
		ev = diagLog.Warn().Err(err)
	}
	ev.Str("endpoint", endpoint).Msg(event)
}

func PTTEvent(endpoint string, keyed bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("endpoint", endpoint).
		Bool("keyed", keyed).
		Msg("ptt")
}

type MonitorStats struct {
	Device     string
	SampleRate uint32
	Frames     int
	Samples    int
	Dropped    uint64
	Skipped    uint64
	DurationS  float64
}

func MonitorEvent(event string, s MonitorStats) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", s.Device).
		Uint32("rate", s.SampleRate).
		Int("frames", s.Frames).
		Int("samples", s.Samples).
		Uint64("dropped", s.Dropped).
		Uint64("skipped", s.Skipped).
		Float64("audio_s", s.DurationS).
		Msg(event)
}

// CaptureSaved appends one line per written capture to capture_log.txt.
func CaptureSaved(dest string, samples int, sampleRate uint32) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if captureFile == nil {
		return
	}
	secs := 0.0
	if sampleRate > 0 {
		secs = float64(samples) / float64(sampleRate)
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\t%d\t%d\t%.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"), pid, dest, samples, sampleRate, secs)
	captureFile.WriteString(line)
}
