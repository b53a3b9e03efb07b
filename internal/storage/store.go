package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/ptune/internal/lti"
)

const (
	metadataFile = "metadata.json"
	responseFile = "response.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps one directory per tuning run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type PlantRecord struct {
	Num    []float64 `json:"num"`
	Den    []float64 `json:"den"`
	Closed bool      `json:"closed"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Plant       PlantRecord        `json:"plant"`
	Target      float64            `json:"target"`
	Gain        float64            `json:"gain"`
	Found       bool               `json:"found"`
	Cost        float64            `json:"cost"`
	Converged   bool               `json:"converged"`
	Attempts    int                `json:"attempts"`
	Evaluations int                `json:"evaluations"`
	Method      string             `json:"method"`
	Global      string             `json:"global"`
	Seed        uint64             `json:"seed"`
	Warnings    []string           `json:"warnings,omitempty"`
	Original    *lti.StepInfo      `json:"original,omitempty"`
	Achieved    *lti.StepInfo      `json:"achieved,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Response is the pair of step responses of a run on a shared time axis.
// Controlled is empty when no gain was found, Original when the open plant
// diverged beyond float range.
type Response struct {
	Times      []float64
	Original   []float64
	Controlled []float64
}

func (s *Store) Save(meta RunMetadata, resp Response) (string, error) {
	if meta.ID == "" {
		meta.ID = newRunID(meta.Name)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if (len(resp.Original) != 0 && len(resp.Original) != len(resp.Times)) ||
		(len(resp.Controlled) != 0 && len(resp.Controlled) != len(resp.Times)) {
		return "", fmt.Errorf("storage: response columns differ in length")
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeResponse(filepath.Join(runDir, responseFile), resp); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func newRunID(name string) string {
	id := uuid.NewString()[:8]
	if name == "" {
		return id
	}
	return name + "_" + id
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResponse(path string, resp Response) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time"}
	cols := [][]float64{resp.Times}
	if len(resp.Original) > 0 {
		header = append(header, "original")
		cols = append(cols, resp.Original)
	}
	if len(resp.Controlled) > 0 {
		header = append(header, "controlled")
		cols = append(cols, resp.Controlled)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for i := range resp.Times {
		for j, col := range cols {
			row[j] = formatFloat(col[i])
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the stored runs, newest first. Unreadable run directories are
// skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.path(runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadResponse(runID string) (*Response, error) {
	file, err := os.Open(s.path(runID, responseFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}

	resp := &Response{}
	if len(records) < 2 {
		return resp, nil
	}

	columns := make([]*[]float64, len(records[0]))
	for j, name := range records[0] {
		switch name {
		case "time":
			columns[j] = &resp.Times
		case "original":
			columns[j] = &resp.Original
		case "controlled":
			columns[j] = &resp.Controlled
		default:
			return nil, fmt.Errorf("storage: %s: unknown column %q", runID, name)
		}
	}
	for i, record := range records[1:] {
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: %s: row %d: %w", runID, i+1, err)
			}
			*columns[j] = append(*columns[j], v)
		}
	}
	return resp, nil
}

// path resolves a file inside a run directory, refusing IDs that would
// escape the store.
func (s *Store) path(runID, name string) string {
	clean := filepath.Base(strings.TrimSpace(runID))
	return filepath.Join(s.baseDir, clean, name)
}
