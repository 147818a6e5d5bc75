package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Per-tenant workflow state machine rows
			CREATE TABLE workflow_records (
				company_id VARCHAR(255) PRIMARY KEY,
				status VARCHAR(50) NOT NULL DEFAULT 'not_started',
				spin_content_status VARCHAR(50),
				investment_analysis_status VARCHAR(50),
				proposal_status VARCHAR(50),
				spin_content JSONB,
				investment_analysis_data JSONB,
				risk_score DOUBLE PRECISION,
				assessment_date TIMESTAMP WITH TIME ZONE,
				version BIGINT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_records_status ON workflow_records(status);
			CREATE INDEX idx_workflow_records_updated_at ON workflow_records(updated_at);

			-- Webhook registrations subscribed to trigger types
			CREATE TABLE webhook_registrations (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				url TEXT NOT NULL,
				active BOOLEAN NOT NULL DEFAULT true,
				trigger_events JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_webhook_registrations_active ON webhook_registrations(active);

			-- Append-only audit log, one row per processed trigger
			CREATE TABLE audit_log_entries (
				id UUID PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				trigger_type VARCHAR(100) NOT NULL,
				trigger_payload JSONB,
				action_type VARCHAR(100) NOT NULL,
				action_result JSONB,
				performed_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_log_entries_company_id ON audit_log_entries(company_id);
			CREATE INDEX idx_audit_log_entries_created_at ON audit_log_entries(created_at);

			-- Approval requests created by the proposal_generated trigger
			CREATE TABLE approval_requests (
				id UUID PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				submitted_by VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
				proposal_data JSONB,
				risk_score DOUBLE PRECISION,
				investment_analysis JSONB,
				decided_by VARCHAR(255),
				decided_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_approval_requests_company_id ON approval_requests(company_id);
			CREATE INDEX idx_approval_requests_status ON approval_requests(status);

			-- Outbox of side effects committed with the primary transition
			CREATE TABLE outbox_events (
				id UUID PRIMARY KEY,
				company_id VARCHAR(255) NOT NULL,
				kind VARCHAR(50) NOT NULL,
				payload JSONB,
				status VARCHAR(50) NOT NULL DEFAULT 'pending',
				attempts INT NOT NULL DEFAULT 0,
				next_attempt_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				delivered_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_outbox_events_status_due ON outbox_events(status, next_attempt_at);
			CREATE INDEX idx_outbox_events_company_id ON outbox_events(company_id);
		`,
	}
}
