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

package gateway

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
)

// Fingerprint derives the cache key for one invocation. Two invocations share
// a key only when function, version, caller scope, and every normalized
// argument value agree. The scope component keeps one caller's cached rows
// from ever answering a caller with a different client scope.
func Fingerprint(functionID, version, scopeID string, args map[string]interface{}) string {
	h := sha256.New()
	fmt.Fprintf(h, "fn=%s;v=%s;scope=%s;", functionID, version, scopeID)

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		// JSON encoding gives a stable representation for every value type
		// that survives argument coercion.
		encoded, err := json.Marshal(args[name])
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", args[name]))
		}
		fmt.Fprintf(h, "%s=%s;", name, encoded)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// cacheKey namespaces fingerprints in the shared Redis keyspace
func cacheKey(fingerprint string) string {
	return "cache:" + fingerprint
}

// rateLimitKey identifies one caller's window for one function
func rateLimitKey(callerID, functionID string) string {
	return fmt.Sprintf("ratelimit:%s:%s", callerID, functionID)
}
