// Package logger routes the standard logger to rotated files so batch
// processing and commit audit lines survive restarts.
package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	rotateCheckInterval = 10 * time.Second
	retentionInterval   = 24 * time.Hour
)

type LoggerService struct {
	Config map[string]interface{}

	mu         sync.Mutex
	file       *os.File
	currentLog string

	stopCh chan struct{}
	wg     sync.WaitGroup

	maxFileBytes  int64
	retentionDays int
	folderPath    string
}

func NewLoggerService(config map[string]interface{}) *LoggerService {
	folder, _ := config["folder_path"].(string)
	if folder == "" {
		folder = "./logs"
	}
	return &LoggerService{
		Config:        config,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(cfgInt(config, "max_file_mb")) << 20,
		retentionDays: cfgInt(config, "retention_days"),
		folderPath:    folder,
	}
}

// cfgInt reads an integer setting; yaml decodes numbers as int but JSON
// overrides arrive as float64.
func cfgInt(config map[string]interface{}, key string) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (l *LoggerService) Name() string {
	return "Logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		return err
	}
	if err := l.openNextLocked(); err != nil {
		return err
	}
	log.Println("[LOGGER] started, writing to", l.currentLog)

	l.wg.Add(1)
	go l.run()
	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	log.Println("[LOGGER] stopping")
	return l.file.Close()
}

// LogAudit records a reviewer-visible action, such as a commit or a batch
// cancellation.
func (l *LoggerService) LogAudit(msg string) {
	log.Printf("[AUDIT] %s", msg)
}

// openNextLocked opens a fresh timestamped log file and points the standard
// logger at it. Caller holds l.mu.
func (l *LoggerService) openNextLocked() error {
	name := filepath.Join(l.folderPath,
		fmt.Sprintf("ingest_%s.log", time.Now().Format("20060102_150405")))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file = file
	l.currentLog = name
	log.SetOutput(file)
	return nil
}

func (l *LoggerService) run() {
	defer l.wg.Done()
	rotate := time.NewTicker(rotateCheckInterval)
	retain := time.NewTicker(retentionInterval)
	defer rotate.Stop()
	defer retain.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-rotate.C:
			if err := l.rotateIfNeeded(); err != nil {
				log.Printf("[LOGGER] rotation failed: %v", err)
			}
		case <-retain.C:
			l.archiveOldLogs()
		}
	}
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}
	if err := l.openNextLocked(); err != nil {
		return err
	}
	log.Println("[LOGGER] rotated to", l.currentLog)
	return nil
}

// archiveOldLogs zips log files older than the retention window into a
// dated archive and removes the originals.
func (l *LoggerService) archiveOldLogs() {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	entries, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}

	var old []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		full := filepath.Join(l.folderPath, e.Name())
		info, err := os.Stat(full)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		old = append(old, full)
	}
	if len(old) == 0 {
		return
	}

	zipName := filepath.Join(l.folderPath,
		fmt.Sprintf("logs_%s.zip", time.Now().Format("20060102")))
	zipFile, err := os.Create(zipName)
	if err != nil {
		return
	}
	defer zipFile.Close()
	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	for _, full := range old {
		w, err := zw.Create(filepath.Base(full))
		if err != nil {
			continue
		}
		src, err := os.Open(full)
		if err != nil {
			continue
		}
		_, copyErr := io.Copy(w, src)
		src.Close()
		if copyErr == nil {
			os.Remove(full)
		}
	}
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}
