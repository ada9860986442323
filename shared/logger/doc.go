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

/*
Package logger provides structured JSON logging for ClientAssist gateway
components.

# Overview

The logger package outputs one JSON object per log line to stdout, making
logs consumable by CloudWatch, ELK, or any other log aggregation system.

Each log entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Component name (gateway, dispatcher, cache, etc.)
  - Instance ID and container name (for distributed tracing)
  - Redacted caller ID (for correlation without identity leakage)
  - Request ID and function ID (for invocation correlation)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("dispatcher")

Log messages with invocation context:

	log.Info(logger.RedactIdentity(caller), requestID, functionID,
	    "cache miss", map[string]interface{}{"key": key})

# Identity redaction

Raw caller identities must never be written to logs. RedactIdentity derives
a short stable digest that still allows correlating all entries produced by
one caller.
*/
package logger
