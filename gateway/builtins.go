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

import "clientassist/platform/shared/types"

// BuiltinFunctions returns the standard client-data retrieval set. Deployments
// with their own schema replace these with a catalog file.
func BuiltinFunctions() []*FunctionDescriptor {
	return []*FunctionDescriptor{
		{
			Name:          "get_client_notes",
			Version:       "1",
			Description:   "Recent account notes for a client",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleSales, types.RoleSupport},
			CacheTTL:      300,
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
				{Name: "limit", Type: ArgInt, Required: false, Default: 20},
			},
			Query: `SELECT note_id, author, body, created_at
				FROM notes WHERE client_id = $1
				ORDER BY created_at DESC LIMIT $2`,
		},
		{
			Name:          "get_transaction_count",
			Version:       "1",
			Description:   "Number of completed transactions for a client",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleFinance, types.RoleSales},
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
			},
			Query: `SELECT COUNT(*) AS transaction_count
				FROM payments WHERE client_id = $1 AND status = 'completed'`,
		},
		{
			Name:          "get_total_amount_paid",
			Version:       "1",
			Description:   "Total amount paid by a client",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleFinance},
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
			},
			Query: `SELECT COALESCE(SUM(amount), 0) AS total_paid
				FROM payments WHERE client_id = $1 AND status = 'completed'`,
		},
		{
			Name:          "get_payment_history",
			Version:       "1",
			Description:   "Payment records for a client, most recent first",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleFinance},
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
				{Name: "limit", Type: ArgInt, Required: false, Default: 50},
			},
			Query: `SELECT payment_id, amount, currency, status, paid_at
				FROM payments WHERE client_id = $1
				ORDER BY paid_at DESC LIMIT $2`,
		},
		{
			Name:          "get_contract_status",
			Version:       "1",
			Description:   "Active contract status for a client",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleSales},
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
			},
			Query: `SELECT contract_id, status, starts_at, ends_at
				FROM contracts WHERE client_id = $1
				ORDER BY starts_at DESC LIMIT 1`,
		},
		{
			Name:          "get_client_summary",
			Version:       "1",
			Description:   "Client profile with aggregate payment totals",
			RequiredRoles: []types.Role{types.RoleAdmin, types.RoleSales, types.RoleFinance},
			CacheTTL:      300,
			Args: []ArgSpec{
				{Name: "client_id", Type: ArgString, Required: true},
			},
			Query: `SELECT c.client_id, c.name, c.segment,
				COUNT(p.payment_id) AS payment_count,
				COALESCE(SUM(p.amount), 0) AS total_paid
				FROM clients c
				LEFT JOIN payments p ON p.client_id = c.client_id AND p.status = 'completed'
				WHERE c.client_id = $1
				GROUP BY c.client_id, c.name, c.segment`,
		},
	}
}
