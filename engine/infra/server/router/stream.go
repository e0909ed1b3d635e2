package router

import (
	"encoding/json"
	"net/http"

	"github.com/genflow/genflow/engine/converter"
	"github.com/genflow/genflow/engine/pipeline"
	"github.com/genflow/genflow/pkg/logger"
	"github.com/gin-gonic/gin"
)

// runStreaming writes the pipeline's chunk sequence as newline-delimited JSON,
// one chunk per line, flushed as it arrives. Heartbeat chunks are written as
// the bare ping sentinel so idle clients see traffic without parsing a JSON
// object.
func (h *handlers) runStreaming(c *gin.Context, p *pipeline.TaskPipeline) {
	ctx := c.Request.Context()
	chunks, err := p.ProcessStream(ctx)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	log := logger.FromContext(ctx)
	c.Writer.Header().Set("Content-Type", "application/x-ndjson; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.WriteHeader(http.StatusOK)
	flusher, _ := c.Writer.(http.Flusher)
	for chunk := range chunks {
		line, ok := encodeChunk(chunk)
		if !ok {
			log.Error("encoding stream chunk failed", "task_id", c.Param("taskID"))
			continue
		}
		if _, err := c.Writer.Write(append(line, '\n')); err != nil {
			log.Debug("stream client disconnected", "error", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func encodeChunk(chunk converter.Chunk) ([]byte, bool) {
	if chunk.Ping {
		return []byte(converter.PingSentinel), true
	}
	line, err := json.Marshal(chunk.Data)
	if err != nil {
		return nil, false
	}
	return line, true
}
