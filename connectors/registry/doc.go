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
Package registry provides a thread-safe registry of datastore connectors.

Connector configurations are registered at startup; instances are created
and connected lazily through a ConnectorFactory on first use, so the
gateway can start even when a secondary datastore is temporarily down.

	reg := registry.NewRegistry()
	reg.SetFactory(func(connectorType string) (base.Connector, error) {
	    switch connectorType {
	    case "postgres":
	        return postgres.NewPostgresConnector(), nil
	    case "mysql":
	        return mysql.NewMySQLConnector(), nil
	    }
	    return nil, fmt.Errorf("unknown connector type: %s", connectorType)
	})

	_ = reg.RegisterConfig(&base.ConnectorConfig{Name: "primary", Type: "postgres", ...})

	conn, err := reg.Get("primary") // connects on first call
*/
package registry
