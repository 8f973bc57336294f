// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package observability

// Standard step names for pipeline events. Use these constants instead of
// hardcoding strings so trace searches stay consistent.
const (
	// Orchestrator steps
	StepQueryStart   = "query_start"
	StepEnhanced     = "enhanced"
	StepQuerySuccess = "query_success"
	StepQueryError   = "query_error"

	// Timed stages (Stop appends "_completed")
	StepQueryEnhance    = "query_enhance"
	StepGenerateExecute = "generate_execute"

	// Analyst steps
	StepSchemaFetch  = "schema_fetch"
	StepSQLGenerated = "sql_generated"
	StepSQLExecuted  = "sql_executed"
)

// Standard field names carried on pipeline events.
const (
	FieldUserQuery     = "user_query"
	FieldEnhancedQuery = "enhanced_query"
	FieldGeneratedSQL  = "generated_sql"
	FieldRowCount      = "row_count"
	FieldLatencyMS     = "latency_ms"
	FieldError         = "error"
	FieldErrorKind     = "error_kind"
)
