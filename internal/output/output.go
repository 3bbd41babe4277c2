// Package output writes analytic events to files, object storage, Kafka or the console.
package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chrisdamba/profitlens/internal/cloudwriter"
	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// Destination receives JSON-encoded events grouped by topic.
type Destination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// Publish encodes event as JSON and writes it to d. A nil destination is a no-op.
func Publish(d Destination, topic string, event interface{}) error {
	if d == nil {
		return nil
	}
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", topic, err)
	}
	return d.WriteMessage(topic, msg)
}

// New picks a destination from configuration.
func New(ctx context.Context, cfg *models.Config) (Destination, error) {
	if cfg.Kafka.Enabled || cfg.Output.Format == "kafka" {
		return NewKafkaOutput(cfg.Kafka)
	}
	switch cfg.Output.Format {
	case "parquet":
		return NewParquetOutput(ctx, cfg)
	case "json":
		return NewJSONOutput(cfg.Output.Path, cfg.Output.Folder), nil
	case "csv":
		return NewCSVOutput(cfg.Output.Path, cfg.Output.Folder), nil
	case "", "console":
		return NewConsoleOutput(os.Stdout), nil
	}
	return nil, fmt.Errorf("unsupported output format: %s", cfg.Output.Format)
}

// partitionPath decodes the event timestamp and renders year=/month=/day=/hour=.
func partitionPath(msg []byte) (map[string]interface{}, string, error) {
	var event map[string]interface{}
	if err := json.Unmarshal(msg, &event); err != nil {
		return nil, "", err
	}
	timestamp, ok := event["timestamp"].(float64)
	if !ok {
		return nil, "", fmt.Errorf("invalid timestamp")
	}
	eventTime := time.Unix(int64(timestamp), 0).UTC()
	year, month, day := eventTime.Date()
	return event, fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d", year, month, day, eventTime.Hour()), nil
}

type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }

type csvFile struct {
	file    *os.File
	writer  *csv.Writer
	headers []string
}

type CSVOutput struct {
	mu       sync.Mutex
	basePath string
	folder   string
	files    map[string]*csvFile
}

func NewCSVOutput(basePath, folder string) *CSVOutput {
	return &CSVOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*csvFile),
	}
}

func (c *CSVOutput) WriteMessage(topic string, msg []byte) error {
	event, partition, err := partitionPath(msg)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(c.basePath, c.folder, topic, partition)

	c.mu.Lock()
	defer c.mu.Unlock()

	fileKey := topic + "_" + partition
	f, ok := c.files[fileKey]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err := os.Create(filepath.Join(fullPath, "data.csv"))
		if err != nil {
			return err
		}
		f = &csvFile{file: file, writer: csv.NewWriter(file), headers: sortedKeys(event)}
		if err := f.writer.Write(f.headers); err != nil {
			return err
		}
		c.files[fileKey] = f
	}

	row := make([]string, len(f.headers))
	for i, header := range f.headers {
		if value, ok := event[header]; ok {
			row[i] = formatValue(value)
		}
	}
	if err := f.writer.Write(row); err != nil {
		return err
	}
	f.writer.Flush()
	return f.writer.Error()
}

func sortedKeys(event map[string]interface{}) []string {
	headers := make([]string, 0, len(event))
	for key := range event {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	return headers
}

// formatValue avoids exponent notation for large unix timestamps.
func formatValue(v interface{}) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

func (c *CSVOutput) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var lastErr error
	for _, f := range c.files {
		f.writer.Flush()
		if err := f.writer.Error(); err != nil {
			lastErr = err
		}
		if err := f.file.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

type JSONOutput struct {
	mu       sync.Mutex
	basePath string
	folder   string
	files    map[string]*os.File
}

func NewJSONOutput(basePath, folder string) *JSONOutput {
	return &JSONOutput{
		basePath: basePath,
		folder:   folder,
		files:    make(map[string]*os.File),
	}
}

func (j *JSONOutput) WriteMessage(topic string, msg []byte) error {
	_, partition, err := partitionPath(msg)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(j.basePath, j.folder, topic, partition)

	j.mu.Lock()
	defer j.mu.Unlock()

	fileKey := topic + "_" + partition
	file, ok := j.files[fileKey]
	if !ok {
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return err
		}
		file, err = os.Create(filepath.Join(fullPath, "data.json"))
		if err != nil {
			return err
		}
		j.files[fileKey] = file
	}

	if _, err := file.Write(msg); err != nil {
		return err
	}
	_, err = file.WriteString("\n")
	return err
}

func (j *JSONOutput) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var lastErr error
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

type parquetPartition struct {
	writer *writer.ParquetWriter
	file   source.ParquetFile
}

// ParquetOutput writes one parquet file per topic and hour, locally or to cloud storage.
type ParquetOutput struct {
	mu                 sync.Mutex
	basePath           string
	folder             string
	partitions         map[string]*parquetPartition
	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
}

func NewParquetOutput(ctx context.Context, cfg *models.Config) (*ParquetOutput, error) {
	p := newParquetOutput(cfg.Output.Path, cfg.Output.Folder)

	if cfg.Output.Destination != "" && cfg.Output.Destination != "local" {
		var factory cloudwriter.CloudWriterFactory
		var err error
		switch cfg.CloudStorage.Provider {
		case "s3":
			factory, err = cloudwriter.NewS3WriterFactory(ctx, cfg.CloudStorage.Region)
		default:
			return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.CloudStorage.Provider)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
		}
		p.cloudWriterFactory = factory
		p.cloudBucketName = cfg.CloudStorage.BucketName
	}
	return p, nil
}

func newParquetOutput(basePath, folder string) *ParquetOutput {
	return &ParquetOutput{
		basePath:   basePath,
		folder:     folder,
		partitions: make(map[string]*parquetPartition),
	}
}

// NewCloudParquetOutput writes through the given factory instead of the local disk.
func NewCloudParquetOutput(factory cloudwriter.CloudWriterFactory, bucket, folder string) *ParquetOutput {
	p := newParquetOutput("", folder)
	p.cloudWriterFactory = factory
	p.cloudBucketName = bucket
	return p
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	_, partition, err := partitionPath(msg)
	if err != nil {
		return err
	}
	row, err := newEventForTopic(topic)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(msg, row); err != nil {
		return fmt.Errorf("decode %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := topic + "_" + partition
	part, ok := p.partitions[key]
	if !ok {
		part, err = p.createPartition(topic, partition)
		if err != nil {
			return fmt.Errorf("failed to create new writer: %w", err)
		}
		p.partitions[key] = part
	}

	if err := part.writer.Write(reflect.ValueOf(row).Elem().Interface()); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetOutput) createPartition(topic, partition string) (*parquetPartition, error) {
	var fw source.ParquetFile
	if p.cloudWriterFactory != nil {
		objectPath := path.Join(p.folder, topic, partition, "data.parquet")
		cloudWriter, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = NewCloudParquetFile(cloudWriter)
	} else {
		fullPath := filepath.Join(p.basePath, p.folder, topic, partition)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return nil, err
		}
		var err error
		fw, err = local.NewLocalFileWriter(filepath.Join(fullPath, "data.parquet"))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
	}

	obj, err := newEventForTopic(topic)
	if err != nil {
		return nil, err
	}
	pw, err := writer.NewParquetWriter(fw, obj, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	return &parquetPartition{writer: pw, file: fw}, nil
}

func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []string
	for key, part := range p.partitions {
		if err := part.writer.WriteStop(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		if err := part.file.Close(); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	p.partitions = make(map[string]*parquetPartition)
	if len(errs) > 0 {
		return fmt.Errorf("closing parquet output: %s", strings.Join(errs, "; "))
	}
	return nil
}
