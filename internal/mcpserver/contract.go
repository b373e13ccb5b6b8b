package mcpserver

// DataFormatContract describes how the clinic collections are persisted and
// what each tool expects.
const DataFormatContract = `# Physiodesk Data Format

The clinic keeps three append-only collections. Each is stored as a JSON
array under a fixed key.

| Key             | Element                                                              |
|-----------------|----------------------------------------------------------------------|
| ` + "`patients`" + `      | ` + "`{\"name\": string, \"age\": number, \"condition\": string, \"notes\": string}`" + ` |
| ` + "`appointments`" + `  | ` + "`{\"patient\": string, \"date\": string, \"notes\": string}`" + `                  |
| ` + "`exercisePlans`" + ` | ` + "`{\"patient\": string, \"plan\": string}`" + `                                   |

## Rules

1. Records have no identifiers and are never edited or deleted.
2. Order is insertion order; duplicates are allowed.
3. The ` + "`patient`" + ` field of appointments and plans is free text. It is not
   checked against the patients collection.
4. Text fields are trimmed. Required fields:
   - patient: name, age (an integer, passed as text), condition
   - appointment: patient, date (ISO 8601 date-time, e.g. 2024-05-01T10:00)
   - exercise plan: patient, plan
5. A submission missing a required field is rejected as a whole.
`
