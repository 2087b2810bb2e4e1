package postgres

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE automations (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255),
				name VARCHAR(255) NOT NULL,
				description TEXT,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_config JSONB,
				active BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_automations_trigger_type ON automations(trigger_type);
			CREATE INDEX idx_automations_tenant_id ON automations(tenant_id);
			CREATE INDEX idx_automations_deleted_at ON automations(deleted_at);

			CREATE TABLE automation_nodes (
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				name VARCHAR(255),
				config JSONB DEFAULT '{}',
				position_x INT DEFAULT 0,
				position_y INT DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (automation_id, id)
			);

			CREATE INDEX idx_automation_nodes_automation_id ON automation_nodes(automation_id);
			CREATE INDEX idx_automation_nodes_type ON automation_nodes(node_type);

			CREATE TABLE automation_edges (
				automation_id UUID NOT NULL REFERENCES automations(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_id VARCHAR(255) NOT NULL,
				target_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(255),
				target_handle VARCHAR(255),
				label VARCHAR(255),
				config JSONB,
				position INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (automation_id, id)
			);

			CREATE INDEX idx_automation_edges_automation_id ON automation_edges(automation_id);
			CREATE INDEX idx_automation_edges_source ON automation_edges(automation_id, source_id, position);
		`,
		2: `
			CREATE TABLE execution_logs (
				id UUID PRIMARY KEY,
				automation_id UUID NOT NULL,
				contact_id VARCHAR(255) NOT NULL,
				opportunity_id VARCHAR(255),
				node_id VARCHAR(255),
				status VARCHAR(50) NOT NULL,
				message TEXT,
				context JSONB,
				result JSONB,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_execution_logs_run ON execution_logs(automation_id, contact_id, created_at);
			CREATE INDEX idx_execution_logs_status ON execution_logs(status);
		`,
		3: `
			CREATE TABLE campaigns (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255),
				name VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL,
				audience JSONB,
				steps JSONB,
				scheduled_at TIMESTAMP WITH TIME ZONE,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_campaigns_status ON campaigns(status);
			CREATE INDEX idx_campaigns_scheduled_at ON campaigns(scheduled_at);

			CREATE TABLE campaign_messages (
				id UUID PRIMARY KEY,
				campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
				contact_id VARCHAR(255) NOT NULL,
				channel VARCHAR(50) NOT NULL,
				content TEXT,
				media_url TEXT,
				status VARCHAR(50) NOT NULL,
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				sent_at TIMESTAMP WITH TIME ZONE,
				provider_message_id VARCHAR(255),
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_campaign_messages_campaign ON campaign_messages(campaign_id, status);
			CREATE INDEX idx_campaign_messages_due ON campaign_messages(status, scheduled_at);

			-- At most one scheduled message per (campaign, contact, channel)
			CREATE UNIQUE INDEX idx_campaign_messages_scheduled_unique
				ON campaign_messages(campaign_id, contact_id, channel)
				WHERE status = 'scheduled';
		`,
		4: `
			CREATE TABLE scheduled_tasks (
				id UUID PRIMARY KEY,
				task_type VARCHAR(100) NOT NULL,
				key VARCHAR(255),
				payload JSONB NOT NULL,
				due_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_scheduled_tasks_due_at ON scheduled_tasks(due_at);
		`,
	}
}
