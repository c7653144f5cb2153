// Copyright © 2024 Galvanized Logic Inc.

package motion

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sorairo/mmdrt/math/lin"
)

// PoseBone is one bone entry of a loaded pose: a translation and rotation
// to apply directly as a bone's animation_translate/animation_rotate,
// already converted into this engine's right-handed skeleton space.
type PoseBone struct {
	Name        string
	Translation lin.V3
	Rotation    lin.Q
}

// PoseMorph is one morph weight entry of a loaded pose.
type PoseMorph struct {
	Name   string
	Weight float64
}

// Pose is a single static pose, as authored by a VPD (Vocaloid Pose Data)
// file: a named snapshot of every posed bone and morph, with no timing
// information. A Pose is applied directly rather than played like an
// Animation; a host wanting to blend into one typically seeds a Layer's
// Play target from a one-frame Animation built from it.
type Pose struct {
	ModelName string
	Bones     []PoseBone
	Morphs    []PoseMorph
}

// LoadPose parses a VPD text file from r. The Reader is expected to be
// opened and closed by the caller. VPD stores bone translation and
// rotation in MMD's left-handed space; LoadPose negates the Z-translation
// and the Z/W rotation components to land in this engine's right-handed
// convention.
func LoadPose(r io.Reader) (*Pose, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, fmt.Errorf("vpd: empty file")
	}
	if !strings.Contains(scanner.Text(), "Vocaloid Pose Data file") {
		return nil, fmt.Errorf("vpd: missing header")
	}

	p := &Pose{}
	if line, ok := nextNonBlank(scanner); ok {
		p.ModelName = strings.TrimSuffix(line, ";")
	}
	nextNonBlank(scanner) // bone count line, unused: len(p.Bones) is authoritative.

	var boneName string
	var morphName string
	inBone, inMorph := false, false
	var values []float64

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch {
		case strings.HasPrefix(line, "Bone") && strings.Contains(line, "{"):
			boneName = line[strings.Index(line, "{")+1:]
			inBone, inMorph = true, false
			values = values[:0]

		case strings.HasPrefix(line, "Morph") && strings.Contains(line, "{"):
			morphName = line[strings.Index(line, "{")+1:]
			inBone, inMorph = false, true
			p.Morphs = append(p.Morphs, PoseMorph{Name: morphName})

		case inBone:
			values = append(values, parseVpdValues(line)...)
			if len(values) >= 7 {
				p.Bones = append(p.Bones, PoseBone{
					Name:        boneName,
					Translation: *lin.NewV3().SetS(values[0], values[1], -values[2]),
					Rotation:    *lin.NewQ().SetS(values[3], values[4], -values[5], -values[6]).Unit(),
				})
				inBone = false
				values = values[:0]
			}

		case inMorph:
			w, _ := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSuffix(line, "}"), ";"), 64)
			p.Morphs[len(p.Morphs)-1].Weight = w
			inMorph = false

		case strings.Contains(line, "}"):
			inBone, inMorph = false, false
			values = values[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vpd: %w", err)
	}
	return p, nil
}

// nextNonBlank scans forward to the next non-blank line, returning it
// trimmed along with whether one was found before EOF.
func nextNonBlank(scanner *bufio.Scanner) (string, bool) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// parseVpdValues splits a comma-separated numeric line, trimming the
// trailing ";" or "}" VPD uses to close a value block.
func parseVpdValues(line string) []float64 {
	clean := strings.TrimSuffix(strings.TrimSuffix(line, ";"), "}")
	parts := strings.Split(clean, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// BoneIndex looks up a bone name against a caller-supplied name table (bone
// index -> name), returning -1 if not found. A Pose stores names, not
// indices, since VPD files are authored independently of any one model's
// bone ordering.
func (p *Pose) BoneIndex(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
