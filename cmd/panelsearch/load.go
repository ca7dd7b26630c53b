// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/panelsearch/core"
	"github.com/poiesic/panelsearch/storage"
)

// chunkDocument is one line of the chunk ingestion JSONL format.
type chunkDocument struct {
	DocID     string   `json:"doc_id"`
	ChunkID   string   `json:"chunk_id"`
	Text      string   `json:"text"`
	FileName  string   `json:"file_name"`
	StartTime string   `json:"start_time"`
	Speakers  []string `json:"speakers"`
	PanelCode string   `json:"panel_code"`
	Theme     string   `json:"theme"`
}

// panelDocument is one entry of the panel ingestion JSON format. The code
// keeps its JSON type (string or number) to mirror the source data.
type panelDocument struct {
	PanelCode        any      `json:"panel_code"`
	Title            string   `json:"title"`
	Theme            string   `json:"theme"`
	PhotoURL         []string `json:"photo_url"`
	SpeakerPhotoURL  []string `json:"speaker_photo_url"`
	OrganizedBy      string   `json:"organized_by"`
	PanelOrganizedBy string   `json:"panel_organized_by"`
	Speakers         []string `json:"speakers"`
	PanelDate        string   `json:"panel_date"`
	Abstract         string   `json:"abstract"`
	PanelURL         string   `json:"panel_url"`
	ExternalURL      string   `json:"external_url"`
}

// loadChunks reads a JSONL file of transcript chunks. Blank lines are
// skipped; a malformed line fails the load with its line number.
func loadChunks(path string) ([]*core.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []*core.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var doc chunkDocument
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		// Source exports do not always carry document identifiers.
		if doc.DocID == "" {
			doc.DocID = uuid.NewString()
		}
		chunks = append(chunks, &core.Chunk{
			DocID:      doc.DocID,
			ChunkID:    doc.ChunkID,
			Text:       doc.Text,
			FileName:   doc.FileName,
			StartTime:  doc.StartTime,
			Speakers:   doc.Speakers,
			PanelCode:  doc.PanelCode,
			PanelTheme: doc.Theme,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// loadPanels reads a JSON array of panel metadata records. A numeric code in
// the source stays numeric in storage; lookups handle both typings.
func loadPanels(path string) ([]storage.PanelRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var docs []panelDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}

	records := make([]storage.PanelRecord, len(docs))
	for i, doc := range docs {
		code := doc.PanelCode
		// JSON numbers decode as float64; keep integers integral so the
		// typed lookup path matches what the source data meant.
		if f, ok := code.(float64); ok && f == float64(int(f)) {
			code = int(f)
		}
		records[i] = storage.PanelRecord{
			Code:             code,
			Title:            doc.Title,
			Theme:            doc.Theme,
			PhotoURL:         doc.PhotoURL,
			SpeakerPhotoURL:  doc.SpeakerPhotoURL,
			OrganizedBy:      doc.OrganizedBy,
			PanelOrganizedBy: doc.PanelOrganizedBy,
			Speakers:         doc.Speakers,
			PanelDate:        doc.PanelDate,
			Abstract:         doc.Abstract,
			PanelURL:         doc.PanelURL,
			ExternalURL:      doc.ExternalURL,
		}
	}
	return records, nil
}
