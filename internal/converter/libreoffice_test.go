package converter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSoffice writes "<target>:<input bytes>" where LibreOffice would put its output.
func fakeSoffice(t *testing.T, calls *[][]string) Runner {
	var mu sync.Mutex
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		mu.Lock()
		*calls = append(*calls, args)
		mu.Unlock()

		var outDir, target string
		for i, a := range args {
			switch a {
			case "--outdir":
				outDir = args[i+1]
			case "--convert-to":
				target, _, _ = strings.Cut(args[i+1], ":")
			}
		}
		input := args[len(args)-1]
		data, err := os.ReadFile(input)
		require.NoError(t, err)
		base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
		return nil, os.WriteFile(filepath.Join(outDir, base+"."+target), append([]byte(target+":"), data...), 0o644)
	}
}

func TestConvertBytesDocxToPDF(t *testing.T) {
	var calls [][]string
	lo := NewLibreOffice("soffice", 1, time.Second).WithRunner(fakeSoffice(t, &calls))

	out, err := lo.ConvertBytes(t.Context(), "report.docx", []byte("hello"), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf:hello", string(out))

	require.Len(t, calls, 1)
	args := calls[0]
	assert.True(t, strings.HasPrefix(args[0], "-env:UserInstallation=file://"))
	assert.Contains(t, args, "--headless")
	assert.NotContains(t, args, "--infilter=writer_pdf_import")
	assert.Equal(t, ".docx", filepath.Ext(args[len(args)-1]))
}

func TestConvertBytesPDFToDocxUsesImportFilter(t *testing.T) {
	var calls [][]string
	lo := NewLibreOffice("soffice", 1, time.Second).WithRunner(fakeSoffice(t, &calls))

	out, err := lo.ConvertBytes(t.Context(), "scan.PDF", []byte("%PDF"), ".docx")
	require.NoError(t, err)
	assert.Equal(t, "docx:%PDF", string(out))
	assert.Contains(t, calls[0], "--infilter=writer_pdf_import")
	assert.Contains(t, calls[0], "docx:MS Word 2007 XML")
}

func TestConvertBytesFailures(t *testing.T) {
	_, err := NewLibreOffice("", 1, 0).ConvertBytes(t.Context(), "a.docx", nil, "pdf")
	assert.EqualError(t, err, "file is empty")

	protected := NewLibreOffice("soffice", 1, time.Second).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Error: source file could not be loaded (password required)"), errors.New("exit status 1")
	})
	_, err = protected.ConvertBytes(t.Context(), "a.docx", []byte("x"), "pdf")
	assert.ErrorIs(t, err, ErrPasswordProtected)

	silent := NewLibreOffice("soffice", 1, time.Second).WithRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte("convert: no export filter"), nil
	})
	_, err = silent.ConvertBytes(t.Context(), "a.docx", []byte("x"), "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no export filter")

	slow := NewLibreOffice("soffice", 1, 20*time.Millisecond).WithRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err = slow.ConvertBytes(t.Context(), "a.docx", []byte("x"), "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestConvertBytesBoundsWorkers(t *testing.T) {
	var inflight, peak int32
	var calls [][]string
	inner := fakeSoffice(t, &calls)
	lo := NewLibreOffice("soffice", 2, time.Second).WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		n := atomic.AddInt32(&inflight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		defer atomic.AddInt32(&inflight, -1)
		return inner(ctx, name, args...)
	})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lo.ConvertBytes(context.Background(), "a.docx", []byte("x"), "pdf")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestConvertBytesCancelledWhileQueued(t *testing.T) {
	lo := NewLibreOffice("soffice", 1, time.Second)
	lo.semaphore <- struct{}{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := lo.ConvertBytes(ctx, "a.docx", []byte("x"), "pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
