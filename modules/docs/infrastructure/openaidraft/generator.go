package openaidraft

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/akfbtn1-netizen/docflow/modules/docs/services"
)

const systemPrompt = `You are a database documentation writer. Produce a markdown
document with the sections Description, Parameters, Returns, Usage and
Change History. Be precise and base every statement on the provided source.`

// Generator produces draft documentation artifacts through the OpenAI chat
// completion API and writes them under the drafts directory.
type Generator struct {
	client    *openai.Client
	model     string
	draftsDir string
	log       *logrus.Entry
}

func NewGenerator(apiKey, model, draftsDir string, log *logrus.Entry) *Generator {
	return &Generator{
		client:    openai.NewClient(apiKey),
		model:     model,
		draftsDir: draftsDir,
		log:       log.WithField("component", "openaidraft"),
	}
}

func (g *Generator) GenerateDraft(ctx context.Context, dc services.DraftContext) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(dc)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("draft completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("draft completion for %s returned no content", dc.DocID)
	}

	if err := os.MkdirAll(g.draftsDir, 0o755); err != nil {
		return "", fmt.Errorf("create drafts dir: %w", err)
	}

	path := filepath.Join(g.draftsDir, fmt.Sprintf("%s_%s_draft.md", dc.DocID, dc.ObjectName))
	if err := os.WriteFile(path, []byte(resp.Choices[0].Message.Content), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}

	g.log.WithFields(logrus.Fields{"doc_id": dc.DocID.String(), "path": path}).Info("draft generated")
	return path, nil
}

func buildPrompt(dc services.DraftContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document id: %s\nChange reference: %s\n", dc.DocID, dc.CorrelationKey)
	fmt.Fprintf(&b, "Object: %s.%s.%s (%s)\n", dc.DatabaseName, dc.SchemaName, dc.ObjectName, dc.ObjectType)
	if dc.Description != "" {
		fmt.Fprintf(&b, "Change description: %s\n", dc.Description)
	}

	switch {
	case dc.Extraction == nil:
		b.WriteString("\nNo source code is available for this object; document the change from its description.\n")
	case dc.Extraction.Method == services.MethodFullObject:
		fmt.Fprintf(&b, "\nNo change markers were present; the full object definition follows.\n\n```sql\n%s\n```\n", dc.Extraction.Code)
	default:
		fmt.Fprintf(&b, "\nRelevant source sections (%d marked):\n\n```sql\n%s\n```\n", dc.Extraction.MatchCount, dc.Extraction.Code)
	}
	return b.String()
}
