package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMirrorFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror.json")
	m := NewMirror(path)

	err := m.Write(map[string]Record{
		"192.168.1.10": rec(120.5, 8, 4.2),
		"192.168.1.11": {},
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{
   "192.168.1.10": {
      "espaco_livre_hd": "120.5 GB",
      "qtd_processadores": "8",
      "espaco_memoria": "4.2 GB"
   },
   "192.168.1.11": {
      "espaco_livre_hd": "unknown",
      "qtd_processadores": "unknown",
      "espaco_memoria": "unknown"
   }
}
`
	if string(data) != want {
		t.Errorf("mirror content:\n%s\nwant:\n%s", data, want)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestMirrorLoadLenient(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]Record
	}{
		{"empty file", "", map[string]Record{}},
		{"whitespace", "  \n", map[string]Record{}},
		{"null", "null", map[string]Record{}},
		{
			name: "numbers and comments",
			content: `{
				// hand edited
				"10.0.0.1": {"espaco_livre_hd": 12.5, "qtd_processadores": 4, "espaco_memoria": "512 MB",},
			}`,
			want: map[string]Record{
				"10.0.0.1": {FreeDiskGB: Gigabytes(12.5), CPUCount: Count(4), FreeMemoryGB: Gigabytes(0.512)},
			},
		},
		{
			name:    "missing and bad fields",
			content: `{"10.0.0.2": {"qtd_processadores": "many", "espaco_memoria": null}}`,
			want:    map[string]Record{"10.0.0.2": {}},
		},
		{
			name:    "null record",
			content: `{"10.0.0.3": null, "10.0.0.4": {"qtd_processadores": "2"}}`,
			want:    map[string]Record{"10.0.0.3": {}, "10.0.0.4": {CPUCount: Count(2)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "mirror.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := NewMirror(path).Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Load = %+v, want %+v", got, tt.want)
			}
			for addr, r := range tt.want {
				if got[addr] != r {
					t.Errorf("%s = %+v, want %+v", addr, got[addr], r)
				}
			}
		})
	}
}
