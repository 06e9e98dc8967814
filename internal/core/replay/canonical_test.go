package replay

import "testing"

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"relative", "part-0.parquet", "/tables/events/part-0.parquet", false},
		{"relative nested", "date=2024-01-01/part-0.parquet", "/tables/events/date=2024-01-01/part-0.parquet", false},
		{"absolute", "/tables/events/part-0.parquet", "/tables/events/part-0.parquet", false},
		{"file uri", "file:///tables/events/part-0.parquet", "/tables/events/part-0.parquet", false},
		{"file uri single slash", "file:/tables/events/part-0.parquet", "/tables/events/part-0.parquet", false},
		{"percent escaped", "date%3D2024/part%200.parquet", "/tables/events/date=2024/part 0.parquet", false},
		{"backslashes", `date=1\part-0.parquet`, "/tables/events/date=1/part-0.parquet", false},
		{"dot segments", "./a/../part-0.parquet", "/tables/events/part-0.parquet", false},
		{"object store", "s3://bucket/events/part-0.parquet", "s3://bucket/events/part-0.parquet", false},
		{"empty", "", "", true},
		{"bad escape", "part%zz.parquet", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizePath(testRoot, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalizePath(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePath(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
