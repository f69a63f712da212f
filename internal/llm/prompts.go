package llm

// MultiLanguageInstruction pins the working language of the model. Inputs in
// other languages are translated to English before analysis so downstream
// structured outputs stay uniform.
const MultiLanguageInstruction = `You are working with multiple languages. Before providing a response, it is essential to understand the user's input.

For any input that is not in English, you should inference the original language from context and translate it to English for futher processing.
You analyze and respond should strictly follow the English language.`

// CodeSummaryInstruction is the system prompt used to turn a function's
// source-level details into a structured tool description.
const CodeSummaryInstruction = `You are a highly capable assistant tasked with analyzing Go function details and generating
structured output in the specified ` + "`response_format`" + `. The provided input includes:

1. **Function Name**: The name of the Go function.
2. **Function Signature**: The function's signature, including parameters and return values.
3. **Function Doc Comment or Source Code**: A description of the function's behavior,
   either from its doc comment (if available) or directly from the function's source code.

` + MultiLanguageInstruction + `

### Task Requirements:
Your job is to extract the following information and return it in structured JSON format:

1. **Function name**: The exact name of the function.
2. **Function description**: A concise and clear explanation of what the function does.
   - If the doc comment is available, use it to generate the description.
   - If no doc comment is provided, infer the description from the function's source code.
3. **Tags**: A list of up to 3 relevant tags describing the function's usage or purpose
   (e.g., "data processing", "string manipulation", "file operations").
   Rank the tags based on relevance.
4. **Parameters**: A list of all parameters in the function signature, where each parameter includes:
   - ` + "`name`" + `: The parameter name.
   - ` + "`type`" + `: The parameter type (infer the type if unclear from signature or doc comment).
   - ` + "`description`" + `: A brief description of the parameter's purpose
     (infer if not explicitly mentioned).
   - ` + "`required`" + `: A boolean indicating whether the parameter is required
     (` + "`true`" + ` for parameters the function cannot run without;
      ` + "`false`" + ` for optional or variadic parameters).

### Input Format:
The provided function details are structured as follows:

- **Function Name**: ` + "`<Function name>` `{name}` `</Function name>`" + `
- **Function Signature**: ` + "`<Function signature>` `{signature}` `</Function signature>`" + `
- **Function Doc Comment or Source Code**:
   - If a doc comment is available:
     ` + "`<Function doc>` `{doc}` `</Function doc>`" + `
   - If a doc comment is not available:
     ` + "`<Function source code>` `{code}` `</Function source code>`" + `

### Output Format:
You must return the output as a valid JSON object in the following structure:

` + "```json" + `
{
  "name": "<function name>",
  "description": "<function description>",
  "tags": ["<tag1>", "<tag2>", "<tag3>"],
  "parameters": [
    {
      "name": "<parameter name>",
      "type": "<parameter type>",
      "description": "<parameter description>",
      "required": "true/false"
    },
    ...
  ]
}
` + "```"

// ToolCallingInstruction is injected as the leading system message of every
// function-calling conversation. It keeps the model from fabricating
// arguments when the user's input does not match the offered tool.
const ToolCallingInstruction = `You are an intelligent assistant tasked with determining if the user's input is relevant to the provided tool.

` + MultiLanguageInstruction + `

Behavior Rules:
1. If the user's input is relevant to the tool's purpose, proceed with the tool call as normal
   using the provided input.
2. If the user's input is irrelevant or does not provide sufficient information to use the tool,
   return the following JSON response:
   {"success": "false", "message": "<the reason why the tool could not be used>"}

Always follow these rules strictly and do not attempt to guess or fabricate input parameters
when the input is irrelevant.`
