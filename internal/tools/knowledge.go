package tools

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

const maxSnippet = 800

// Knowledge queries the public medical knowledge services: MedlinePlus,
// PubMed E-utilities and OpenFDA.
type Knowledge struct {
	hc          *http.Client
	medlinePlus string
	pubmed      string
	openFDA     string
}

// Topic is one MedlinePlus health topic.
type Topic struct {
	Title   string
	Snippet string
	URL     string
}

type medlineResult struct {
	Documents []struct {
		URL      string `xml:"url,attr"`
		Contents []struct {
			Name  string `xml:"name,attr"`
			Inner string `xml:",innerxml"`
		} `xml:"content"`
	} `xml:"list>document"`
}

// SearchTopics queries a MedlinePlus database ("healthTopics" normally).
func (k *Knowledge) SearchTopics(ctx context.Context, term, db string) ([]Topic, error) {
	q := url.Values{"db": {db}, "term": {term}, "retmax": {"5"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.medlinePlus+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := k.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("MedlinePlus request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Service: "MedlinePlus", Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var result medlineResult
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing MedlinePlus response: %w", err)
	}

	var topics []Topic
	for _, doc := range result.Documents {
		t := Topic{URL: doc.URL}
		var snippet string
		for _, c := range doc.Contents {
			switch c.Name {
			case "title":
				t.Title = plainText(c.Inner)
			case "FullSummary":
				t.Snippet = plainText(c.Inner)
			case "snippet":
				snippet = plainText(c.Inner)
			}
		}
		if t.Title == "" {
			continue
		}
		if t.Snippet == "" {
			t.Snippet = snippet
		}
		t.Snippet = truncateText(t.Snippet, maxSnippet)
		topics = append(topics, t)
	}
	return topics, nil
}

var guidanceNoise = regexp.MustCompile(`(?i)\b(management|treatment|therapy|symptoms|causes|prevention|lifestyle|strategies|guidelines|advice)\b`)

// simplifyQuery drops words MedlinePlus topic titles never contain.
func simplifyQuery(q string) string {
	return strings.Join(strings.Fields(guidanceNoise.ReplaceAllString(q, " ")), " ")
}

// Guidance returns patient-facing MedlinePlus guidance for query. It tries
// the query as written, then with treatment-style words removed.
func (k *Knowledge) Guidance(ctx context.Context, query string) (string, error) {
	topics, err := k.SearchTopics(ctx, query, "healthTopics")
	if err != nil {
		return "", err
	}
	if len(topics) == 0 {
		if simpler := simplifyQuery(query); simpler != "" && simpler != query {
			topics, err = k.SearchTopics(ctx, simpler, "healthTopics")
			if err != nil {
				return "", err
			}
		}
	}
	if len(topics) == 0 {
		return fmt.Sprintf("No clinical guidance found for '%s'. This may be a specialized topic - consult your healthcare provider.", query), nil
	}

	var b strings.Builder
	b.WriteString("**MedlinePlus Clinical Guidance:**\n")
	for _, t := range topics {
		fmt.Fprintf(&b, "\n### %s\n%s\n", t.Title, t.Snippet)
		if t.URL != "" {
			fmt.Fprintf(&b, "Read more: %s\n", t.URL)
		}
	}
	return b.String(), nil
}

// plainText strips markup from a MedlinePlus field. Summaries arrive as
// entity-escaped HTML, so a second pass removes the decoded tags.
func plainText(raw string) string {
	s := htmlText(raw)
	if strings.ContainsAny(s, "<>") {
		s = htmlText(s)
	}
	return strings.Join(strings.Fields(s), " ")
}

func htmlText(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}

// Articles searches PubMed and summarises the top three hits.
func (k *Knowledge) Articles(ctx context.Context, query string) (string, error) {
	q := url.Values{"db": {"pubmed"}, "term": {query}, "retmax": {"3"}, "retmode": {"json"}}
	var search struct {
		Result struct {
			IDs []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := getJSON(ctx, k.hc, "PubMed", k.pubmed+"/esearch.fcgi?"+q.Encode(), nil, &search); err != nil {
		return "", err
	}
	if len(search.Result.IDs) == 0 {
		return "No PubMed articles found for this query.", nil
	}

	q = url.Values{"db": {"pubmed"}, "id": {strings.Join(search.Result.IDs, ",")}, "retmode": {"json"}}
	var summary struct {
		Result map[string]any `json:"result"`
	}
	if err := getJSON(ctx, k.hc, "PubMed", k.pubmed+"/esummary.fcgi?"+q.Encode(), nil, &summary); err != nil {
		return "", err
	}

	var lines []string
	for _, id := range search.Result.IDs {
		article, _ := summary.Result[id].(map[string]any)
		title := stringField(article, "title", "No title")
		source := stringField(article, "source", "")
		date := stringField(article, "pubdate", "")
		lines = append(lines, fmt.Sprintf("- **%s** (%s, %s)\n  PMID: %s", title, source, date, id))
	}
	return strings.Join(lines, "\n"), nil
}

func stringField(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

// ReactionCount returns how many OpenFDA adverse event reports pair the
// medication with the reaction.
func (k *Knowledge) ReactionCount(ctx context.Context, med, reaction string) (int, error) {
	search := fmt.Sprintf(`patient.drug.medicinalproduct:"%s" AND patient.reaction.reactionmeddrapt:"%s"`, med, reaction)
	q := url.Values{"search": {search}, "limit": {"1"}}
	var out struct {
		Meta struct {
			Results struct {
				Total int `json:"total"`
			} `json:"results"`
		} `json:"meta"`
	}
	err := getJSON(ctx, k.hc, "OpenFDA", k.openFDA+"?"+q.Encode(), nil, &out)
	if notFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return out.Meta.Results.Total, nil
}

// Reaction is an adverse event term and its report count.
type Reaction struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// TopReactions returns the most reported reactions for a medication.
func (k *Knowledge) TopReactions(ctx context.Context, med string, limit int) ([]Reaction, error) {
	q := url.Values{
		"search": {fmt.Sprintf(`patient.drug.medicinalproduct:"%s"`, med)},
		"count":  {"patient.reaction.reactionmeddrapt.exact"},
		"limit":  {fmt.Sprint(limit)},
	}
	var out struct {
		Results []Reaction `json:"results"`
	}
	err := getJSON(ctx, k.hc, "OpenFDA", k.openFDA+"?"+q.Encode(), nil, &out)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Results, nil
}

// MedicationSafety reports whether symptom is a known side effect of med.
func (k *Knowledge) MedicationSafety(ctx context.Context, med, symptom string) (string, error) {
	n, err := k.ReactionCount(ctx, med, symptom)
	if err != nil {
		return "", err
	}
	if n > 0 {
		return fmt.Sprintf("CAUTION: '%s' is a reported side effect of %s (%d reports found).", symptom, med, n), nil
	}

	top, err := k.TopReactions(ctx, med, 5)
	if err != nil {
		return "", err
	}
	for _, r := range top {
		if strings.Contains(strings.ToLower(r.Term), strings.ToLower(symptom)) {
			return fmt.Sprintf("CAUTION: '%s' is a known side effect of %s (reported %d times).", symptom, med, r.Count), nil
		}
	}
	return fmt.Sprintf("'%s' does not appear to be a common side effect of %s in the FDA database.", symptom, med), nil
}

// OpenFDA answers 404 when a search has no matches.
func notFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}
