package subagent

import (
	"context"

	"taskforge/internal/agent"
	"taskforge/internal/config"
	"taskforge/internal/contextmgr"
)

// skillTools are available to every sub-agent that keeps long-term notes.
var skillTools = []string{"skill_save", "skill_read", "skill_list"}

// Builtins constructs the fixed sub-agent catalog. Every invocation runs
// in a fresh conversation context; only the orchestrator sees the chat
// history. Tool subsets name registry entries; names that are not
// registered (e.g. browser when disabled) are dropped at definition time
// by the registry filter, so the lists here can stay static.
func Builtins(contexts *contextmgr.Manager, cfg config.AgentConfig) *Catalog {
	run := func(prompt string, tools []string) Handler {
		return func(ctx context.Context, message string) (string, error) {
			res, err := contexts.ExecuteFreshContext(ctx, message, agent.RunOptions{
				SystemPrompt:  prompt,
				ToolNames:     tools,
				MaxIterations: cfg.MaxIterations,
				MaxTokens:     cfg.MaxTokens,
				Temperature:   cfg.Temperature,
			})
			if err != nil {
				return "", err
			}
			return res.Result, nil
		}
	}

	return NewCatalog(
		Definition{
			Key:         "ticket",
			Description: "Manages issues in the tracker: creating, finding, updating and commenting on tickets.",
			Triggers:    []string{"jira ticket", "create a ticket", "ticket", "issue", "sprint", "backlog"},
			Handler: run(
				"You are the ticket management agent. Work with the issue tracker to create, find and update issues. Keep titles short and bodies actionable.",
				append([]string{"tracker"}, skillTools...),
			),
		},
		Definition{
			Key:         "docs",
			Description: "Writes and finds documentation in the team wiki.",
			Triggers:    []string{"wiki", "documentation page", "confluence", "document this", "write docs"},
			Handler: run(
				"You are the documentation agent. Create and search wiki pages. Prefer updating an existing page over duplicating one.",
				append([]string{"wiki", "web_search"}, skillTools...),
			),
		},
		Definition{
			Key:         "code",
			Description: "Works with the code host and the local repository: pull requests, branches, file changes.",
			Triggers:    []string{"pull request", "code review", "repository", "branch", "merge", "commit"},
			Handler: run(
				"You are the code agent. Use the code host, git and the workspace filesystem to inspect and change code. Never force-push.",
				append([]string{"code_host", "git", "filesystem"}, skillTools...),
			),
		},
		Definition{
			Key:         "test",
			Description: "Writes and maintains automated tests in the workspace.",
			Triggers:    []string{"unit tests", "write tests", "test coverage", "failing test", "regression test"},
			Handler: run(
				"You are the test-writing agent. Read the code under test from the workspace, then write focused tests next to it. Follow the project's existing test style.",
				append([]string{"filesystem", "git"}, skillTools...),
			),
		},
		Definition{
			Key:         "research",
			Description: "Researches questions on the web and summarizes findings.",
			Triggers:    []string{"research", "look up", "search the web", "find out", "investigate"},
			Handler: run(
				"You are the research agent. Search the web, read the most relevant pages and answer with a short sourced summary.",
				append([]string{"web_search", "browser"}, skillTools...),
			),
		},
	)
}
