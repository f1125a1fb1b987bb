package vlm

// Prompts are tuned for small local vision models (llava, moondream) that
// follow formats loosely. Both demand bare JSON and the parser tolerates
// prose around it anyway.

const screenPrompt = `Analyze this screenshot. Output ONLY valid JSON, no other text.

{
  "app": "application name",
  "screen_name": "screen name or type",
  "elements": [
    {"type": "button", "label": "text on button", "bounds": {"x": 0, "y": 0, "width": 100, "height": 30}},
    {"type": "input", "label": "field label", "bounds": {"x": 0, "y": 0, "width": 100, "height": 30}}
  ]
}

Output JSON only:`

const actionPrompt = `Compare these two consecutive screenshots. Output ONLY valid JSON.

{
  "action_detected": true or false,
  "action": {
    "type": "click/type/select/scroll/navigate",
    "target_element": "what was interacted with",
    "value": "text typed or option selected",
    "target_bounds": {"x": 0, "y": 0, "width": 100, "height": 30}
  },
  "confidence": 0.0 to 1.0,
  "screen_changed": true or false
}

Output JSON only:`
