package store

const schema = `
CREATE TABLE IF NOT EXISTS users (
	email TEXT PRIMARY KEY,
	name TEXT,
	tier TEXT NOT NULL DEFAULT 'free', -- free, plus, pro
	profile TEXT, -- JSON: customGoals (schedules), longTermGoals
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_states (
	user_email TEXT PRIMARY KEY,
	energy_level INTEGER,
	stress_level INTEGER,
	focus_window_score INTEGER,
	routine_deviation_score INTEGER,
	deadline_pressure_score INTEGER,
	last_active_at DATETIME,
	last_intervention_at DATETIME,
	state_updated_at DATETIME,
	FOREIGN KEY(user_email) REFERENCES users(email)
);

CREATE TABLE IF NOT EXISTS event_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_email TEXT NOT NULL,
	event_type TEXT NOT NULL,
	payload TEXT, -- JSON
	source TEXT,
	occurred_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_email) REFERENCES users(email)
);
CREATE INDEX IF NOT EXISTS idx_event_logs_user_time ON event_logs(user_email, occurred_at);

CREATE TABLE IF NOT EXISTS intervention_logs (
	id TEXT PRIMARY KEY,
	user_email TEXT NOT NULL,
	intervention_level INTEGER NOT NULL,
	reason_codes TEXT, -- JSON array
	action_type TEXT NOT NULL,
	action_payload TEXT, -- JSON; may embed _originalState for rollback
	user_feedback TEXT,
	intervened_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	feedback_at DATETIME,
	FOREIGN KEY(user_email) REFERENCES users(email)
);
CREATE INDEX IF NOT EXISTS idx_intervention_logs_user_time ON intervention_logs(user_email, intervened_at);

CREATE TABLE IF NOT EXISTS agent_preferences (
	user_email TEXT PRIMARY KEY,
	enabled BOOLEAN DEFAULT 1,
	max_intervention_level INTEGER DEFAULT 2,
	notification_style TEXT DEFAULT 'gentle',
	quiet_hours_start INTEGER DEFAULT 22,
	quiet_hours_end INTEGER DEFAULT 7,
	intervention_cooldown_minutes INTEGER DEFAULT 120,
	auto_action_opt_in BOOLEAN DEFAULT 0,
	FOREIGN KEY(user_email) REFERENCES users(email)
);

CREATE TABLE IF NOT EXISTS agent_notifications (
	id TEXT PRIMARY KEY,
	user_email TEXT NOT NULL,
	type TEXT NOT NULL,
	title TEXT,
	body TEXT,
	dismissed BOOLEAN DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_email) REFERENCES users(email)
);
CREATE INDEX IF NOT EXISTS idx_notifications_user_type ON agent_notifications(user_email, type, created_at);

CREATE TABLE IF NOT EXISTS confirmation_requests (
	id TEXT PRIMARY KEY,
	user_email TEXT NOT NULL,
	intervention_log_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	action_payload TEXT,
	message TEXT,
	status TEXT NOT NULL DEFAULT 'pending', -- pending, approved, rejected
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	resolved_at DATETIME,
	FOREIGN KEY(user_email) REFERENCES users(email)
);

CREATE TABLE IF NOT EXISTS resources (
	id TEXT PRIMARY KEY,
	user_email TEXT NOT NULL,
	kind TEXT NOT NULL, -- briefing, resource_list, habit_insight
	title TEXT,
	content TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(user_email) REFERENCES users(email)
);

CREATE TABLE IF NOT EXISTS feedback_stats (
	user_email TEXT NOT NULL,
	action_type TEXT NOT NULL,
	weight_multiplier REAL NOT NULL DEFAULT 1.0,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(user_email, action_type)
);

CREATE TABLE IF NOT EXISTS agent_actions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_email TEXT NOT NULL,
	agent_type TEXT NOT NULL, -- react, scheduled
	action TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_agent_actions_user_time ON agent_actions(user_email, created_at);

CREATE TABLE IF NOT EXISTS ai_usage (
	user_email TEXT NOT NULL,
	month TEXT NOT NULL, -- YYYY-MM, user-local
	calls INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY(user_email, month)
);
`
