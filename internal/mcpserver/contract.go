package mcpserver

// FixFormatContract describes the canonical fix entry format that LLM
// consumers should follow when publishing fixes.
const FixFormatContract = `# Fixport Fix Entry Contract

Every fix entry published through Fixport MUST follow this JSON structure.

## Structure

` + "```" + `json
{
  "slug": "outlook-search-broken",
  "title": "Outlook search returns no results",
  "description": "Rebuilds the search index when Outlook search comes back empty.",
  "category": "O365",
  "severity": "Medium",
  "accessLevel": "User Safe",
  "estimatedTime": "15 minutes",
  "tags": ["outlook", "search"],
  "steps": [
    {
      "title": "Close Outlook",
      "type": "info",
      "content": "Make sure Outlook is fully closed before continuing."
    },
    {
      "title": "Rebuild the index",
      "type": "command",
      "content": "Settings > Search > Searching Windows > Advanced > Rebuild"
    }
  ]
}
` + "```" + `

## Rules

1. **All fields are required.** ` + "`" + `tags` + "`" + ` and ` + "`" + `steps` + "`" + ` must each contain
   at least one element.
2. **Slug** is lowercase kebab-case: letters, digits and single hyphens
   (` + "`" + `^[a-z0-9]+(-[a-z0-9]+)*$` + "`" + `). It identifies the fix; publishing the
   same slug again replaces the previous version.
3. **Category** is one of: Windows, macOS, Linux, O365, Networking,
   Hardware, Security.
4. **Severity** is one of: Low, Medium, High.
5. **accessLevel** is "User Safe" or "Admin Required". Use "Admin Required"
   whenever any step needs elevated rights.
6. **Tags** are lowercase and deduplicated; surrounding whitespace is
   stripped. Empty tags are rejected.
7. **Step type** is one of: info, command, warning. Use "warning" for steps
   that can lose data or lock a user out.
8. **Steps are ordered.** They are shown and executed top to bottom; put
   prerequisites first.

## Publishing

- ` + "`" + `publish_fix` + "`" + ` validates the entry and writes it to the shared store.
  Validation failures return the full list of issues; fix them all and
  retry with the complete entry.
- A publish can fail with a conflict when someone else published at the
  same time. Retry once; the merge is upsert-by-slug, so no work is lost.
`
