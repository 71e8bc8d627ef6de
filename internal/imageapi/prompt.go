package imageapi

import "fmt"

// The prompts keep the product itself untouched and only move the camera or
// rework the background. Both providers share them so switching providers
// doesn't change what the user asked for.

func anglePrompt(promptHint string) string {
	return fmt.Sprintf(`You are given a product photograph. Render the exact same product, unchanged in shape, color, material and branding, from %s.
Keep studio-quality lighting consistent with the original photo. Output only the rendered image.`, promptHint)
}

func upscalePrompt() string {
	return `Upscale this image to a higher resolution. Sharpen fine detail and texture faithfully.
Do not add, remove or restyle any content. Output only the enhanced image.`
}

func removeBackgroundPrompt() string {
	return `Remove the background from this image completely, keeping only the product with clean edges
on a plain white background. Do not alter the product itself. Output only the edited image.`
}

func changeBackgroundPrompt(prompt string) string {
	return fmt.Sprintf(`Replace the background of this image with: %s.
Keep the product itself exactly as it is, with lighting and shadows adjusted to sit naturally in the new scene.
Output only the edited image.`, prompt)
}
