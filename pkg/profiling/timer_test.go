package profiling

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledProfilerRecordsNothing(t *testing.T) {
	p := &Profiler{}
	p.Start("compile").Stop()

	var buf bytes.Buffer
	p.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestSpansAggregateByName(t *testing.T) {
	p := &Profiler{}
	p.Enable()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := p.Start("compile")
			time.Sleep(time.Millisecond)
			s.Stop()
			s.Stop()
		}()
	}
	wg.Wait()
	p.Start("install").Stop()

	var buf bytes.Buffer
	p.Summarize(&buf)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "compile"))
	assert.Contains(t, lines[2], " 4 ")
	assert.True(t, strings.HasPrefix(lines[3], "install"))
}
