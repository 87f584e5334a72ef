package alignment

import "encoding/json"

// Schema is the structured-output contract sent with the schema-constrained
// strategy: an array of aligned units, each with an alignment type, the
// verbatim sentence pair, and the 16-field assessment record.
var Schema = json.RawMessage(`{
  "name": "change_assessments",
  "schema": {
    "type": "array",
    "items": {
      "type": "object",
      "properties": {
        "type": { "type": "string", "enum": ["match", "insert", "delete", "split", "merge"] },
        "sentences": {
          "type": "object",
          "properties": {
            "M1": { "type": ["string", "null"] },
            "M2": { "type": ["string", "null"] }
          },
          "required": ["M1", "M2"],
          "additionalProperties": false
        },
        "assessment": {
          "type": "object",
          "properties": {
            "textual differences": {
              "type": "string",
              "enum": ["yes", "no", "yes (addition)", "yes (deletion)"]
            },
            "semantic impact": { "type": "string", "enum": ["NA", "low", "moderate", "high"] },
            "sentiment before": { "type": "string", "enum": ["Very Negative", "Negative", "Neutral", "Positive", "Very Positive"] },
            "sentiment after": { "type": "string", "enum": ["Very Negative", "Negative", "Neutral", "Positive", "Very Positive"] },
            "sentiment change direction": { "type": "string", "enum": ["more positive", "no change", "more negative"] },
            "overall importance of the change": {
              "type": "string",
              "pattern": "^(?:[Ii]mportant|[Nn]ot important)\\s-\\s.+$"
            },
            "importance category": { "type": "string" },
            "importance reason": { "type": "string" },
            "literature rationale": { "type": "string" },
            "version diff summary": { "type": "string" },
            "overall assessment": { "type": "string" },
            "POS category changed": {
              "type": "array",
              "items": { "type": "string", "enum": ["VERB", "NOUN", "PROPN", "ADJ", "NUM", "ADV"] },
              "uniqueItems": true
            },
            "NER category changed": {
              "type": "array",
              "items": { "type": "string", "enum": ["PERSON", "ORG", "GPE", "LOC", "DATE", "MONEY", "PERCENT"] },
              "uniqueItems": true
            },
            "grammar change": { "type": "string", "enum": ["yes", "no"] },
            "verbal changes": {
              "type": "array",
              "items": { "type": "string", "enum": ["tense", "aspect", "voice", "modality"] },
              "uniqueItems": true
            },
            "rewritten": { "type": "boolean" }
          },
          "required": [
            "textual differences",
            "semantic impact",
            "sentiment before",
            "sentiment after",
            "sentiment change direction",
            "overall importance of the change",
            "importance category",
            "importance reason",
            "literature rationale",
            "version diff summary",
            "overall assessment",
            "POS category changed",
            "NER category changed",
            "grammar change",
            "verbal changes",
            "rewritten"
          ],
          "additionalProperties": false
        }
      },
      "required": ["sentences", "assessment"],
      "additionalProperties": false
    }
  }
}`)
