package answer

import "fmt"

const groundedPrompt = `You are a helpful library assistant. Answer the reader's question using the reference material below. Prefer concrete facts from the material over general knowledge, and answer in the language the question was asked in.

Reference material:
%s

Question: %s

Answer:`

const generalPrompt = `You are a helpful library assistant. Answer the reader's question from your own knowledge, in the language the question was asked in. Be direct and concise.

Question: %s

Answer:`

// noInfoMarker is the token the extraction prompt instructs the model to
// emit when a fragment group contains nothing relevant. Rounds whose
// response contains it are skipped during synthesis.
const noInfoMarker = "NO_RELEVANT_INFO"

const extractionPrompt = `Extract every piece of information from the material below that helps answer the question. Quote facts, numbers, and names exactly as written. If the material contains nothing relevant, reply with exactly ` + noInfoMarker + `.

Material:
%s

Question: %s

Extracted information:`

const synthesisPrompt = `Combine the extracted notes below into one coherent answer to the question. Do not invent facts that are not in the notes, and answer in the language the question was asked in.

Notes:
%s

Question: %s

Answer:`

func buildGroundedPrompt(contextText, question string) string {
	return fmt.Sprintf(groundedPrompt, contextText, question)
}

func buildGeneralPrompt(question string) string {
	return fmt.Sprintf(generalPrompt, question)
}

func buildExtractionPrompt(contextText, question string) string {
	return fmt.Sprintf(extractionPrompt, contextText, question)
}

func buildSynthesisPrompt(notes, question string) string {
	return fmt.Sprintf(synthesisPrompt, notes, question)
}
