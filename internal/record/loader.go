// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// imageRef is the on-disk reference form of an image asset in a record file.
type imageRef struct {
	Name string `yaml:"name"`
	MIME string `yaml:"mime"`
	Path string `yaml:"path"`
}

// recordFile is the YAML shape of a record on disk: the record fields plus
// image references resolved relative to the record file.
type recordFile struct {
	IntelligenceRecord `yaml:",inline"`
	ImageRefs          []imageRef `yaml:"images"`
}

// LoadFile reads an intelligence record from a YAML file. Image payloads
// are loaded from the referenced paths, resolved relative to the record
// file's directory when not absolute.
func LoadFile(path string) (*IntelligenceRecord, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading record file: %w", err)
	}

	var rf recordFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("error parsing record file: %w", err)
	}

	baseDir := filepath.Dir(cleanPath)
	for _, ref := range rf.ImageRefs {
		imgPath := ref.Path
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(baseDir, imgPath)
		}
		payload, err := os.ReadFile(filepath.Clean(imgPath))
		if err != nil {
			return nil, fmt.Errorf("error reading image %q: %w", ref.Name, err)
		}
		rf.Images = append(rf.Images, ImageAsset{
			Name:         ref.Name,
			DeclaredMIME: ref.MIME,
			Data:         payload,
		})
	}

	rec := rf.IntelligenceRecord
	return &rec, nil
}
