package middleware

import (
	"time"
)

type Response struct {
	Data    any
	Message string
	Code    int
	Error   error
}

type ResponseAPIDebug struct {
	Version   string    `json:"version"`
	Error     *string   `json:"error"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	RuntimeMs int64     `json:"runtimeMs"`
}

type ResponseAPI struct {
	RequestID string            `json:"requestId"`
	Data      any               `json:"data"`
	Message   string            `json:"message"`
	Debug     *ResponseAPIDebug `json:"debug,omitempty"`
}

type StreamChunk struct {
	JSONBuf *[]byte // pooled; handed back through StreamResponse.Release
	Error   error
}

// StreamResponse is a JSON body produced chunk by chunk. The chunks
// concatenate to one valid document.
type StreamResponse struct {
	TotalCount int64 // sent as X-Total-Count when not negative
	ChunkChan  <-chan StreamChunk
	Release    func(*[]byte)
	Error      error // fails the request before anything is written
	Code       int
}
