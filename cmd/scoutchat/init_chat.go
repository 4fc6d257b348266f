package main

import (
	"fmt"

	"scoutchat/internal/adapter/llm"
	"scoutchat/internal/usecase"
)

// chatOptions are the flags shared by chat and ask.
type chatOptions struct {
	web         bool
	localSearch bool
}

// initConversation wires the model provider, prompts and searcher into an
// empty conversation. Flags that were set win over the config file.
func (a *app) initConversation(opts chatOptions, webSet, localSet bool) (*usecase.Conversation, error) {
	web := a.cfg.Chat.Web
	if webSet {
		web = opts.web
	}
	local := a.cfg.Chat.LocalSearch
	if localSet {
		local = opts.localSearch
	}

	provider, err := llm.NewProvider(a.cfg.LLM, a.log)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}

	prompts, err := usecase.NewPromptBuilder(a.cfg.Chat.Prompt)
	if err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}

	searcher, err := a.initChatSearcher(local)
	if err != nil {
		return nil, err
	}

	a.log.Info("chat ready",
		"provider", provider.Name(),
		"model", a.cfg.LLM.Model,
		"web", web,
		"searcher", searcher.Name(),
	)

	return usecase.NewConversation(usecase.ConversationDeps{
		LLM:           provider,
		Searcher:      searcher,
		Prompts:       prompts,
		Logger:        a.log,
		SearchTimeout: a.cfg.Chat.SearchTimeout,
		Web:           web,
	}), nil
}
