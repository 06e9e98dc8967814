// Package benchmark provides performance benchmarks for snapshot
// reconstruction.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare partition counts on one log size:
//
//	go test -bench='BenchmarkReplay/files_50000' -benchmem -count=5 ./internal/tests/benchmark/... | tee replay.txt
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
