package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBackingMetrics(t *testing.T) {
	m := NewBackingMetrics("test-backing")
	m.Painted("YUV420P")
	m.Painted("YUV420P")
	m.BytesUploaded.Add(1024)

	assert.Equal(t, 2.0, testutil.ToFloat64(UpdatesPainted.WithLabelValues("test-backing", "YUV420P")))
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.BytesUploaded))

	m.Forget()
	assert.Equal(t, 0.0, testutil.ToFloat64(UpdatesPainted.WithLabelValues("test-backing", "YUV420P")))
}
