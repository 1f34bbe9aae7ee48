package transcription

import "strings"

// buildPrompt produces the combined structuring + summarization prompt. The
// model is instructed to emit strict JSON so the defensive parse in
// ExtractJSON is a fallback, not the happy path.
func buildPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("You are a clinical documentation assistant. Convert the following visit transcript into a JSON object with exactly these fields:\n\n")
	b.WriteString(`- "past_medical_history": list of strings` + "\n")
	b.WriteString(`- "current_symptoms": list of {"symptom": string, "severity": string}` + "\n")
	b.WriteString(`- "physical_exam_findings": object mapping finding name to value` + "\n")
	b.WriteString(`- "diagnosis": string or list of strings` + "\n")
	b.WriteString(`- "treatment_plan": list of strings` + "\n")
	b.WriteString(`- "prescriptions": list of {"medication": string, "dosage": string, "frequency": string, "duration": string}` + "\n")
	b.WriteString(`- "summary": a short prose summary of the visit` + "\n\n")
	b.WriteString("Use empty lists or objects for fields not mentioned in the transcript. ")
	b.WriteString("Respond with the JSON object only. Do not wrap it in markdown code fences or add commentary.\n\n")
	b.WriteString("Transcript:\n")
	b.WriteString(transcript)
	return b.String()
}
