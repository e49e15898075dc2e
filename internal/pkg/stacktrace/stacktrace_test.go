package stacktrace

import (
	"slices"
	"testing"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/minibank/internal/pkg/goroutine.(*Manager).Go.func1.1()
	/src/minibank/internal/pkg/goroutine/goroutine.go:71 +0x85
panic({0x1, 0x2})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/shandysiswandi/minibank/internal/identity/usecase.(*Usecase).Login(...)
	/src/minibank/internal/identity/usecase/login.go:40
`)

	got := InternalPaths(stack)
	want := []string{
		"internal/pkg/goroutine/goroutine.go:71",
		"internal/identity/usecase/login.go:40",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
}

func TestInternalPaths_None(t *testing.T) {
	if got := InternalPaths([]byte("runtime/debug.Stack()\n\t/usr/local/go/src/runtime/debug/stack.go:26\n")); len(got) != 0 {
		t.Fatalf("paths = %v", got)
	}
}
