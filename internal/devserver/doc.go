// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local stand-in for the ForgeMind chat backend.
//
// It implements the same five endpoints the client uses, persists chats in
// SQLite, and answers prompts with a fixed acknowledgment instead of calling
// a model. An extra endpoint lets developers flip the plugin status:
//
//	POST   /chat                 {text, user_id, thread_id?}
//	GET    /get_chats?user_id=
//	GET    /get_messages?chat_id=
//	DELETE /delete_chat          {chat_id, user_id}
//	GET    /check_plugin_login?user_id=
//	POST   /dev/plugin           {user_id, is_connected, is_logged_out, is_active}
//	GET    /health
package devserver
