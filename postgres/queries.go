package postgres

const (
	queryCreateEvent = `
		INSERT INTO events (title, description, date, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`
	queryGetEvent = `
		SELECT id, title, description, date, location, created_at, updated_at
		FROM events
		WHERE id = $1;
	`
	queryListEvents = `
		SELECT id, title, description, date, location, created_at, updated_at
		FROM events
		ORDER BY date ASC, id ASC;
	`
	queryUpdateEvent = `
		UPDATE events
		SET title = $2, description = $3, date = $4, location = $5, updated_at = now()
		WHERE id = $1
		RETURNING id, title, description, date, location, created_at, updated_at;
	`
	queryDeleteEvent = `DELETE FROM events WHERE id = $1;`

	queryInsertMessage = `
		INSERT INTO chat_messages (event_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at;
	`
	queryListMessagesByEvent = `
		SELECT id, event_id, user_id, content, created_at
		FROM chat_messages
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC;
	`
	queryListMessagesPage = `
		SELECT id, event_id, user_id, content, created_at
		FROM chat_messages
		WHERE event_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR created_at < $2
		    OR (created_at = $2 AND id < $3)
		  )
		ORDER BY created_at DESC, id DESC
		LIMIT $4;
	`
	queryDeleteMessage = `DELETE FROM chat_messages WHERE id = $1;`
)
