package openai

import "fmt"

const explanationResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": "string"},
    "tags": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[a-z]+(_[a-z]+)*$"}
    },
    "severity": {"type": "string", "enum": ["debug", "info", "warning", "error", "fatal"]},
    "component": {"type": "string"}
  },
  "required": ["summary", "tags", "severity"],
  "additionalProperties": false
}`

const explanationPromptTemplate = `You explain log and error messages to on-call engineers.
For the log line given by the user, return JSON describing it.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble,
explanation, greeting, or acknowledgment. Start your response directly with the opening brace {
and end with the closing brace }. Your output must exactly follow this schema:

%s

Rules:
- summary is one plain-English sentence saying what went wrong or what happened.
- tags are at most %d lowercase snake_case labels naming the failure class and the subsystem.
- severity is your judgement of the line, not only the level printed in it.
- component is the library, service or subsystem that emitted the line, or "" when unknown.
- Do not invent hosts, file names or numbers that are not in the line.

Example:
Input: "ERROR pq: could not connect to server: Connection refused (10.0.0.4:5432)"
Output:
{
  "summary": "The application could not open a connection to the PostgreSQL server.",
  "tags": ["connection_refused", "database"],
  "severity": "error",
  "component": "postgres"
}

Example:
Input: "INFO server listening on :8080"
Output:
{
  "summary": "The HTTP server started and is accepting connections on port 8080.",
  "tags": ["startup"],
  "severity": "info",
  "component": "http"
}`

func buildSystemPrompt(maxTags int) string {
	return fmt.Sprintf(explanationPromptTemplate, explanationResponseSchema, maxTags)
}
