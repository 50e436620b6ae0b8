package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsRunnable(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Dt <= 0 || cfg.Steps <= 0 || cfg.ReportEvery <= 0 {
		t.Fatalf("defaults not runnable: %+v", cfg)
	}
	if len(cfg.Schedule) == 0 {
		t.Fatal("default schedule empty")
	}
	s := cfg.BuildSchedule()
	if len(s) != len(cfg.Schedule) {
		t.Fatalf("schedule length %d", len(s))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.System = "drude"
	cfg.Integrator = "nose-hoover"
	cfg.Dt = 0.0005
	cfg.Temperature = 250
	cfg.Schedule = []SchedulePair{{Group: 1, Substeps: 1}, {Group: 0, Substeps: 4}}
	cfg.Chain.Length = 4

	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.System != "drude" || got.Integrator != "nose-hoover" {
		t.Fatalf("system/integrator: %q %q", got.System, got.Integrator)
	}
	if got.Dt != 0.0005 || got.Temperature != 250 {
		t.Fatalf("dt %g, temperature %g", got.Dt, got.Temperature)
	}
	if len(got.Schedule) != 2 || got.Schedule[1] != (SchedulePair{Group: 0, Substeps: 4}) {
		t.Fatalf("schedule %v", got.Schedule)
	}
	if got.Chain.Length != 4 {
		t.Fatalf("chain length %d", got.Chain.Length)
	}
}

func TestLoadAppliesDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.yaml")
	if err := os.WriteFile(path, []byte("system: ideal-gas\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.System != "ideal-gas" {
		t.Fatalf("system %q", cfg.System)
	}
	if cfg.Dt != DefaultDt || cfg.Temperature != DefaultTemperature {
		t.Fatalf("defaults not applied: dt %g, temperature %g", cfg.Dt, cfg.Temperature)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing file loaded")
	}
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []SchedulePair
		wantErr bool
	}{
		{
			name: "three levels",
			in:   "2:1,1:2,0:8",
			want: []SchedulePair{{2, 1}, {1, 2}, {0, 8}},
		},
		{
			name: "single level with spaces",
			in:   " 0:1 ",
			want: []SchedulePair{{0, 1}},
		},
		{name: "empty", in: "", wantErr: true},
		{name: "missing colon", in: "0,1", wantErr: true},
		{name: "non-numeric group", in: "a:1", wantErr: true},
		{name: "non-numeric substeps", in: "0:b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parsed %q to %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
