package db

// Migrations returns the full embedded schema history in version order.
func Migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_admins",
			SQL: `
CREATE TABLE IF NOT EXISTS admins (
    id UUID PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`,
		},
		{
			Version: 2,
			Name:    "create_patients",
			SQL: `
CREATE TABLE IF NOT EXISTS patients (
    id UUID PRIMARY KEY,
    first_name VARCHAR(100) NOT NULL,
    last_name VARCHAR(100) NOT NULL,
    email VARCHAR(255) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    date_of_birth DATE,
    gender VARCHAR(20),
    phone VARCHAR(30),
    address TEXT,
    allergies TEXT[] NOT NULL DEFAULT '{}',
    chronic_conditions TEXT[] NOT NULL DEFAULT '{}',
    profile_picture VARCHAR(500),
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    last_checkup_date DATE,
    reminder_email VARCHAR(255),
    reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_patients_status ON patients (status);
CREATE INDEX IF NOT EXISTS idx_patients_reminder
    ON patients (last_checkup_date)
    WHERE reminder_sent = FALSE AND last_checkup_date IS NOT NULL;`,
		},
		{
			Version: 3,
			Name:    "create_reports",
			SQL: `
CREATE TABLE IF NOT EXISTS reports (
    id UUID PRIMARY KEY,
    patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
    title VARCHAR(255) NOT NULL,
    file_name VARCHAR(500) NOT NULL,
    file_key VARCHAR(500) NOT NULL,
    content_type VARCHAR(255) NOT NULL,
    size_bytes BIGINT NOT NULL,
    uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reports_patient ON reports (patient_id, uploaded_at DESC);

CREATE TABLE IF NOT EXISTS report_comments (
    id UUID PRIMARY KEY,
    report_id UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
    author_id UUID NOT NULL,
    author_role VARCHAR(20) NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_report_comments_report ON report_comments (report_id, created_at);`,
		},
		{
			Version: 4,
			Name:    "create_heart_rates",
			SQL: `
CREATE TABLE IF NOT EXISTS heart_rates (
    id UUID PRIMARY KEY,
    patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
    bpm INTEGER NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_heart_rates_patient ON heart_rates (patient_id, recorded_at);`,
		},
		{
			Version: 5,
			Name:    "create_feedback",
			SQL: `
CREATE TABLE IF NOT EXISTS feedback (
    id UUID PRIMARY KEY,
    patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
    subject VARCHAR(255) NOT NULL,
    message TEXT NOT NULL,
    reply TEXT,
    replied_by UUID,
    replied_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_feedback_patient ON feedback (patient_id, created_at DESC);`,
		},
	}
}
