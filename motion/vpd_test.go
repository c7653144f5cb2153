// Copyright © 2024 Galvanized Logic Inc.

package motion

import (
	"strings"
	"testing"
)

const sampleVpd = `Vocaloid Pose Data file

sample_model;
2;

Bone0{センター
  0.000000,1.500000,-2.000000;
  0.000000,0.000000,0.000000,1.000000;
}

Bone1{右腕
  0.000000,0.000000,0.000000;
  0.000000,0.707107,0.000000,0.707107;
}

Morph0{まばたき
  0.750000;
}
`

func TestLoadPoseParsesHeaderAndModelName(t *testing.T) {
	p, err := LoadPose(strings.NewReader(sampleVpd))
	if err != nil {
		t.Fatalf("LoadPose failed: %v", err)
	}
	if p.ModelName != "sample_model" {
		t.Errorf("model name = %q, want %q", p.ModelName, "sample_model")
	}
}

func TestLoadPoseConvertsBoneCoordinatesToRightHanded(t *testing.T) {
	p, err := LoadPose(strings.NewReader(sampleVpd))
	if err != nil {
		t.Fatalf("LoadPose failed: %v", err)
	}
	if len(p.Bones) != 2 {
		t.Fatalf("expected 2 bones, got %d", len(p.Bones))
	}
	b := p.Bones[0]
	if b.Name != "センター" {
		t.Errorf("bone name = %q, want センター", b.Name)
	}
	if b.Translation.X != 0 || b.Translation.Y != 1.5 || b.Translation.Z != 2.0 {
		t.Errorf("translation = %+v, want Z negated to 2.0", b.Translation)
	}
	// VPD negates the w component during its left-to-right-handed
	// conversion; (0,0,0,-1) is the same rotation as identity (0,0,0,1),
	// just the other member of the double cover.
	if b.Rotation.W != -1.0 {
		t.Errorf("identity rotation W = %v, want -1.0", b.Rotation.W)
	}
}

func TestLoadPoseParsesMorphWeight(t *testing.T) {
	p, err := LoadPose(strings.NewReader(sampleVpd))
	if err != nil {
		t.Fatalf("LoadPose failed: %v", err)
	}
	if len(p.Morphs) != 1 {
		t.Fatalf("expected 1 morph, got %d", len(p.Morphs))
	}
	if p.Morphs[0].Name != "まばたき" || p.Morphs[0].Weight != 0.75 {
		t.Errorf("morph = %+v, want まばたき at 0.75", p.Morphs[0])
	}
}

func TestLoadPoseRejectsMissingHeader(t *testing.T) {
	if _, err := LoadPose(strings.NewReader("not a vpd file\n")); err == nil {
		t.Error("expected an error for a file missing the VPD header")
	}
}

func TestBoneIndexFindsNameInTable(t *testing.T) {
	p := &Pose{}
	names := []string{"root", "センター", "右腕"}
	if idx := p.BoneIndex(names, "右腕"); idx != 2 {
		t.Errorf("BoneIndex = %d, want 2", idx)
	}
	if idx := p.BoneIndex(names, "missing"); idx != -1 {
		t.Errorf("BoneIndex for missing name = %d, want -1", idx)
	}
}
