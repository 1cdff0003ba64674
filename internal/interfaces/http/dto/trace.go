// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"z-novel-context-api/internal/domain/entity"
)

// TraceListResponse 最近的调用追踪记录，按时间倒序
type TraceListResponse struct {
	Traces []*entity.LLMTrace `json:"traces"`
	Count  int                `json:"count"`
}

// ToTraceListResponse 转换追踪记录列表
func ToTraceListResponse(traces []*entity.LLMTrace) *TraceListResponse {
	if traces == nil {
		traces = []*entity.LLMTrace{}
	}
	return &TraceListResponse{Traces: traces, Count: len(traces)}
}
