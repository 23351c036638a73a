package provider

import (
	"fmt"
	"strings"

	"ai-slovo/internal/domain/entity"
)

// SystemPrompt returns the instructions given to authoring backends.
func SystemPrompt(style entity.StyleEntry) string {
	return fmt.Sprintf(`You are an expert at creating short and vivid image generation prompts. Your task is to analyze Bible quotes and create prompts that will generate meaningful, symbolic, and visually striking images.

The prompt should:
1. Be in English
2. Capture the essence and meaning of the quote
3. Use symbolic elements and metaphors
4. Image should not contain any text
5. Image should be abstract
6. Image should use %s style with these characteristics: %s
7. Image should avoid obvious digital look and feel
8. Image should avoid obvious photography look and feel
9. Image should not have the main object in the center of the image
10. Image should avoid concrete objects but use abstract shapes and forms
11. Consider the current weather conditions in the artistic style and mood, but do not use it as main focus

Format your response as a single, well-structured prompt that can be directly used for image generation.`,
		style.Name, strings.Join(style.Characteristics, ", "))
}

// UserPrompt returns the per-run request given to authoring backends.
func UserPrompt(req PromptRequest) string {
	var b strings.Builder
	b.WriteString("Create a detailed image generation prompt for this Bible quote, but do not use the quote itself in the description of the image: ")
	b.WriteString(req.Quote)
	if c := strings.TrimSpace(req.Context); c != "" {
		b.WriteString("\n\nConsider this weather context, but do not use it as main focus: ")
		b.WriteString(c)
	}
	return b.String()
}

// LocalInstruction builds an instruction from a fixed template. It never fails.
func LocalInstruction(req PromptRequest) entity.RenderingInstruction {
	text := fmt.Sprintf(`Create a symbolic and meaningful image representing this Bible quote: "%s"
The image should:
1. Capture the essence and meaning of the quote
2. Use symbolic elements and metaphors
3. Have a spiritual and contemplative atmosphere
4. Be suitable for sharing on social media
5. Use %s style with these characteristics: %s`,
		req.Quote, req.Style.Name, strings.Join(req.Style.Characteristics, ", "))

	return entity.RenderingInstruction{
		Text:     text,
		Backend:  entity.LocalBackend,
		Fallback: true,
	}
}
