// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the ForgeMind chat service.
//
// The service exposes five endpoints:
//
//	POST   /chat                {text, user_id, thread_id?}
//	GET    /get_chats           ?user_id=
//	GET    /get_messages        ?chat_id=
//	DELETE /delete_chat         {chat_id, user_id}
//	GET    /check_plugin_login  ?user_id=
//
// No call is retried. Every failure is returned to the caller, who decides
// how it degrades. ChatMessages is the exception that always hands back a
// usable (empty) slice alongside its error.
//
// # Usage
//
//	client := backend.NewClient("http://localhost:5000").WithTimeout(30 * time.Second)
//	resp, err := client.SendPrompt(ctx, backend.ChatRequest{Text: "design a bracket", UserID: uid})
package backend
