package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/equityline/caseenrich/internal/model"
)

// systemText frames every extraction call.
const systemText = "You are a foreclosure PDF analysis assistant. Extract structured info from legal documents into clean double-quoted JSON. Never guess missing values. Leave blank if not found."

// basePrompt carries the full rule set. The disqualifying conditions live
// here and only here; the engine trusts the model to honor them.
const basePrompt = `Always follow this logic:
==========
FILTERING
==========
- Before any further processing, scan the entire document for red flag conditions.
- If ANY of the following are found:
   - "Guardian ad Litem"
   - "HOA" or "Homeowners Association"
   - >10 heirs
   - Homestead exemption
   - Reverse mortgage, HUD/USDA/federal lien
   - Mobile home / trailer
   - Bankruptcy, guardianship, conservatorship
   - Government owner / grantee
   - Owner is an LLC, Trust, Irrevocable Trust
   - Joint tenant survivor
   - Mentions of a will, executor, or testate succession
   - Keywords: "partition", "quiet title", "motion to intervene"
- Only flag for Trust ownership if the owner is explicitly identified as a Trust, Trustee, or the Trust itself (e.g., 'The Lunsford Family Trust'). Do not misinterpret 'Deed of Trust executed by John Smith' as indicating trust ownership.
- Do NOT treat a case as a red flag just because the owner is deceased or heirs are mentioned. These are informational fields. Only flag if there is an explicit mention of a Will, Executor, Testate succession, or court terms like 'Probate Court', 'Letters of Administration'.
- Setting Deceased = true or Heir_Flag = Yes alone should NOT trigger red_flag = Yes. Only flag if red flag keywords listed above are explicitly found in the document.

-> Then immediately STOP processing further and return only the following output:
{
  "active_indicator": false,
  "red_flag": "Yes",
  "red_flag_reason": "[Insert detected issue here, e.g., 'HOA foreclosure', 'Reverse mortgage mentioned', etc.]",
  "case_summary": "10 lines -> case purpose, parties, debt type, status, legal steps"
}

Ignore formatting issues (e.g., case # mid-sentence).
===============
DEFENDANT INFO
===============
- Extract ALL individual human defendants (entire doc: headers, service certs, exhibits).
- For each:
  - Full_Name (as printed), First_Name, Last_Name (if separable),
  - Mailing address (only if labeled: "mailing", "sent to", "last known", etc),
  - Deceased = true only if explicitly stated.
- Do NOT include companies, banks, LLCs, trusts, or law firms.
- If vague (e.g., "heirs of"), fill Full_Name only.
- Do not assume they live at the property.
============================
PROPERTY & CASE IDENTIFIERS
============================
- Case Number: format like 25SP001130-090, 25CV007269-400.
- Parcel ID: look for "Parcel ID", "Tax ID", "PIN", or patterns near legal descriptions (e.g., 12/3456, 55384830370000, 150-05-138).
- Address: use physical/legal/tax description fields only (not mailing address).
- Deed Book/Page: use oldest original Deed of Trust if multiple listed.
- Accept address variants like "commonly known as", "Property Address".
=======================
AMOUNT EXTRACTION RULES
=======================
- Total_Tax_Amount: sum ALL taxes/fees: "amount due", "penalty", "interest", "filing fee", "service fee", etc.
- Total_Lien_Amount: non-tax liens (e.g., cleanup, fines, municipal charges).
- Mortgage_Balance:
  -> Extract the total due, payoff, or amount secured by deed of trust. If not available, return the principal/note amount. Include all mortgage-type debts (1st, 2nd, HELOC) using terms like "payoff", "secured debt", "HELOC". Exclude taxes, municipal fines, and judgment liens.
- Mortgage_Year:
  -> Extract the earliest year tied to the original deed of trust from phrases like "Deed of Trust dated", "executed on", or "recorded on".
=================
RED FLAG DETECTION
=================
If any below appears, set red_flag = "Yes", active_indicator = false:
- >10 heirs
- Homestead exemption
- Reverse mortgage, HUD/USDA/fed lien
- Mobile home/trailer
- Bankruptcy, guardianship, conservatorship
- Govt owner / grantee
- LLC, Trust, Irrevocable Trust
- Joint tenant survivor
- Will / testate succession
- Keywords: "partition", "quiet title", "motion to intervene"
Else, red_flag = "No", active_indicator = true.
===================
DEAL EVALUATION INFO
===================
- case_type: One of [Tax Foreclosure, Mortgage, HOA, Other]
- complexity_score: 1-5 (null if unclear)
- flag_manual_review = "Yes" if any field missing or ambiguous
- classification_reason: Triggering keywords
- case_summary: 10 lines -> case purpose, parties, debt type, status, legal steps
- Filed_date: e.g., "04/10/2023"
- Status: Open, Closed, Dismissed, Other
- Court_type: Trial, Superior, etc.
===================
HEIRS & PROBATE INFO
===================
- Heir_Flag: "Yes" if any "heirs of", "heirs at law", "devisees", etc.
  -> Heir_Count_Estimated = "Unknown" (if vague), or numeric count if named
- Probate_Clue = "Yes" only if terms like: "Estate of", "Executor", "Probate Court", "Letters of Administration" appear. Do not set just because "Deceased" is listed.
===========================
MERGE INSTRUCTION (if used)
===========================
If previous extracted data is passed, update only if the new value is better or previously blank.
==================
RETURN FORMAT (JSON)
==================
{
  "Property_Info": {
    "Property_address": "", "Parcel_ID": "", "County": "",
    "Deed_Book_Number": "", "Deed_Page_Number": "", "Mortgage_Balance": "", "Mortgage_Year": "", "Heir_Flag": "", "Heir_Count_Estimated": "", "Probate_Clue": "",
    "Plaintiff_Name": "",
    "Defendants": [
      {
        "Name": { "Full_Name": "", "First_Name": "", "Last_Name": "" },
        "Address": { "Mailing_Address": "", "Mailing_City": "", "Mailing_State": "", "Zip_Code": "" },
        "Deceased_Info": { "Deceased": true, "Deceased_Info": "" }
      }
    ],
    "Property_Use_Type": ""
  },
  "Tax_Info": { "Total_Tax_Amount": "", "Total_Lien_Amount": "" },
  "Deal_Evaluation": {
    "case_type": "", "complexity_score": null, "flag_manual_review": "Yes/No",
    "classification_reason": "", "case_summary": "", "Filed_date": "",
    "Status": "", "Court_type": ""
  },
  "Owner_Other_Case_Numbers": [],
  "red_flag": "Yes/No",
  "red_flag_reason": "",
  "active_indicator": true
}`

// buildPrompt assembles the user message: rules, optional prior-state
// context, then the document text.
func buildPrompt(docText string, prior *model.ExtractionState) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	if ctx := renderStateContext(prior); ctx != "" {
		b.WriteString("\n\n")
		b.WriteString(ctx)
	}
	b.WriteString("\n\n")
	b.WriteString(docText)
	return b.String()
}

// renderStateContext renders the prior state as an indented outline, the
// form the merge instruction expects. Empty state renders nothing.
func renderStateContext(state *model.ExtractionState) string {
	if state == nil || state.IsZero() {
		return ""
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return ""
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return ""
	}
	return "Previous extracted data:\n" + renderOutline(data, 0)
}

func renderOutline(data any, indent int) string {
	spacing := strings.Repeat(" ", indent)
	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, k := range keys {
			switch child := v[k].(type) {
			case map[string]any, []any:
				lines = append(lines, fmt.Sprintf("%s- %s:", spacing, k))
				lines = append(lines, renderOutline(child, indent+4))
			default:
				lines = append(lines, fmt.Sprintf("%s- %s: %v", spacing, k, child))
			}
		}
		return strings.Join(lines, "\n")
	case []any:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case map[string]any, []any:
				lines = append(lines, spacing+"-")
				lines = append(lines, renderOutline(item, indent+4))
			default:
				lines = append(lines, fmt.Sprintf("%s- %v", spacing, item))
			}
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%s%v", spacing, v)
	}
}
