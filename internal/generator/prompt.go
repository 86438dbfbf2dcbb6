package generator

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a website builder. You always answer with a single complete HTML document and nothing else."

func buildGeneratePrompt(currentDocument, instructions, chatContext string, assets []AssetRef) string {
	var b strings.Builder
	if currentDocument == "" {
		b.WriteString("Create a single-page website.\n")
	} else {
		b.WriteString("Update the website below. Return the complete updated document.\n")
	}
	writeCommon(&b, instructions, chatContext, assets)
	if currentDocument != "" {
		fmt.Fprintf(&b, "\nCurrent document:\n%s\n", currentDocument)
	}
	return b.String()
}

func buildPatchPrompt(currentDocument, sectionName, instructions, chatContext string, assets []AssetRef) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite only the %q section of the website below, leave everything else untouched, and return the complete document.\n", sectionName)
	writeCommon(&b, instructions, chatContext, assets)
	fmt.Fprintf(&b, "\nCurrent document:\n%s\n", currentDocument)
	return b.String()
}

func writeCommon(b *strings.Builder, instructions, chatContext string, assets []AssetRef) {
	fmt.Fprintf(b, "\nInstructions:\n%s\n", instructions)
	if chatContext != "" {
		fmt.Fprintf(b, "\nConversation so far:\n%s\n", chatContext)
	}
	if len(assets) > 0 {
		b.WriteString("\nAvailable images (use the URLs as-is):\n")
		for _, a := range assets {
			fmt.Fprintf(b, "- %s: %s\n", a.URL, a.Description)
		}
	}
}
