// Package benchmark compares minibuf with the dynamic message support of
// google.golang.org/protobuf. It holds only tests and benchmarks.
package benchmark
