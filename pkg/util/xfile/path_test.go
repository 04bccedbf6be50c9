package xfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"simple", "logs/app.log", "logs/app.log", nil},
		{"clean dots", "./logs//app.log", "logs/app.log", nil},
		{"absolute dotdot resolved", "/var/log/../tmp/a.log", "/var/tmp/a.log", nil},
		{"dotdot prefix filename", "..config", "..config", nil},
		{"empty", "", "", ErrEmptyPath},
		{"null byte", "a\x00b", "", ErrNullByte},
		{"dir", "logs/", "", ErrInvalidPath},
		{"traversal", "../etc/passwd", "", ErrPathTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.want), got)
		})
	}
}

func TestSafeJoin(t *testing.T) {
	base := t.TempDir()

	got, err := SafeJoin(base, "hello.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "hello.html"), got)

	got, err = SafeJoin(base, "pages/../other.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "other.html"), got)

	_, err = SafeJoin(base, "../secret")
	assert.ErrorIs(t, err, ErrPathTraversal)

	_, err = SafeJoin(base, "/etc/passwd")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SafeJoin(base, `C:\windows`)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SafeJoin("relative", "x")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SafeJoin(base, "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestResolveIn_Symlink(t *testing.T) {
	base := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(base, "page.html"), []byte("ok"), 0o600))

	if err := os.Symlink(outside, filepath.Join(base, "evil")); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	got, err := ResolveIn(base, "page.html")
	require.NoError(t, err)
	assert.Equal(t, "page.html", filepath.Base(got))

	_, err = ResolveIn(base, "evil/secret")
	assert.ErrorIs(t, err, ErrPathEscaped)

	// 目标不存在时按父目录解析
	got, err = ResolveIn(base, "missing.html")
	require.NoError(t, err)
	assert.Equal(t, "missing.html", filepath.Base(got))
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.log")
	require.NoError(t, EnsureDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, EnsureDir("c.log"))
	assert.ErrorIs(t, EnsureDir(""), ErrEmptyPath)
}

func FuzzSafeJoin(f *testing.F) {
	f.Add("hello.html")
	f.Add("../x")
	f.Add("a/../../b")
	f.Add("..config")
	f.Add("\\\\server\\share")

	base := f.TempDir()
	f.Fuzz(func(t *testing.T, rel string) {
		got, err := SafeJoin(base, rel)
		if err != nil {
			return
		}
		if !within(base, got) {
			t.Fatalf("SafeJoin(%q) = %q escapes base", rel, got)
		}
	})
}
