package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/standlive/internal/domain/model"
)

// Static synthesizes ContestRecords from local leaderboard files so contests
// that are not sourced live flow through the same pipeline.
//
// Files live in one directory as leaderboard_<contestID>.csv with a header
// line followed by handle,rank,points,penalty records. An optional
// identities.csv (name,handle header plus records) maps display names to
// canonical handles before rows are emitted.
type Static struct {
	dir       string
	aliases   map[string]string
	loadedIDs map[string]bool
}

// NewStatic scans dir for leaderboard files. A missing or empty directory is
// legal and yields a source that defines no contests.
func NewStatic(dir string) (*Static, error) {
	s := &Static{
		dir:       dir,
		aliases:   make(map[string]string),
		loadedIDs: make(map[string]bool),
	}
	if dir == "" {
		return s, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := contestIDFromFile(e.Name()); ok {
			s.loadedIDs[id] = true
		}
	}

	if rows, err := readCSV(filepath.Join(dir, "identities.csv")); err == nil {
		for _, rec := range rows {
			if len(rec) >= 2 {
				s.aliases[strings.TrimSpace(rec[0])] = strings.TrimSpace(rec[1])
			}
		}
	}
	return s, nil
}

// Defines reports whether a local file backs the contest identifier.
func (s *Static) Defines(contestID string) bool {
	return s.loadedIDs[contestID]
}

// Standings implements Source.
func (s *Static) Standings(ctx context.Context, contestID string) (*model.ContestRecord, error) {
	if !s.Defines(contestID) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, contestID)
	}

	records, err := readCSV(filepath.Join(s.dir, "leaderboard_"+contestID+".csv"))
	if err != nil {
		return nil, fmt.Errorf("read leaderboard file for %s: %w", contestID, err)
	}

	rec := &model.ContestRecord{
		ContestID: contestID,
		Name:      "Local Round " + contestID,
	}
	for _, fields := range records {
		if len(fields) < 2 {
			continue
		}
		handle := strings.TrimSpace(fields[0])
		if canonical, ok := s.aliases[handle]; ok {
			handle = canonical
		}
		rank, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || handle == "" {
			continue
		}
		row := model.ParticipantRow{Handle: handle, Rank: rank}
		if len(fields) > 2 {
			row.Points, _ = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		}
		if len(fields) > 3 {
			row.Penalty, _ = strconv.Atoi(strings.TrimSpace(fields[3]))
		}
		rec.Rows = append(rec.Rows, row)
	}
	return rec, nil
}

// readCSV returns the record lines of a comma-separated file with its header
// line skipped.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	all, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}

// contestIDFromFile extracts the contest id from a leaderboard file name.
func contestIDFromFile(name string) (string, bool) {
	const prefix, suffix = "leaderboard_", ".csv"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	if id == "" {
		return "", false
	}
	return id, true
}
