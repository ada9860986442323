// Copyright 2025 ClientAssist
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Logger provides structured logging for gateway components
type Logger struct {
	Component  string
	InstanceID string
	Container  string
}

// LogEntry represents a structured log entry. CallerID must always be the
// redacted caller identity (see RedactIdentity), never the raw identity.
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	CallerID   string                 `json:"caller_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	FunctionID string                 `json:"function_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new Logger for the specified component
func New(component string) *Logger {
	// Instance ID is set during deployment
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
	}
}

// RedactIdentity returns a short stable digest of a caller identity for
// logging. Infrastructure failures are correlated by this digest so raw
// identities never reach the log transport.
func RedactIdentity(identity string) string {
	if identity == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:8])
}

// Log creates a structured log entry and writes it to stdout
func (l *Logger) Log(level LogLevel, callerID, requestID, functionID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		CallerID:   callerID,
		RequestID:  requestID,
		FunctionID: functionID,
		Message:    message,
		Fields:     fields,
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: Failed to marshal log entry: %v", err)
		return
	}

	// Write JSON log to stdout (the container runtime captures this)
	log.Println(string(jsonBytes))
}

// Info logs an informational message
func (l *Logger) Info(callerID, requestID, functionID, message string, fields map[string]interface{}) {
	l.Log(INFO, callerID, requestID, functionID, message, fields)
}

// Error logs an error message
func (l *Logger) Error(callerID, requestID, functionID, message string, fields map[string]interface{}) {
	l.Log(ERROR, callerID, requestID, functionID, message, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(callerID, requestID, functionID, message string, fields map[string]interface{}) {
	l.Log(WARN, callerID, requestID, functionID, message, fields)
}

// Debug logs a debug message
func (l *Logger) Debug(callerID, requestID, functionID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, callerID, requestID, functionID, message, fields)
}

// InfoWithDuration logs an info message with duration field
func (l *Logger) InfoWithDuration(callerID, requestID, functionID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Info(callerID, requestID, functionID, message, fields)
}

// ErrorWithErr logs an error message with the underlying error attached
func (l *Logger) ErrorWithErr(callerID, requestID, functionID, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(callerID, requestID, functionID, message, fields)
}
