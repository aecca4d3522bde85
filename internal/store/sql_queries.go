package store

const (
	createAccount = `INSERT INTO accounts (account_id, username, identity_key, created_at)
    VALUES ($1, $2, $3, $4);`

	findAccountByID = `SELECT account_id, username, identity_key, created_at
    FROM accounts
    WHERE account_id = $1;`

	deleteAccountByID = `DELETE FROM accounts
    WHERE account_id = $1;`

	insertUsedLinkToken = `INSERT INTO used_link_tokens (token_id, used_at)
    VALUES ($1, now());`

	deleteExpiredLinkTokens = `DELETE FROM used_link_tokens
    WHERE used_at < $1;`

	createDevice = `INSERT INTO devices (account_id, device_id, name, registration_id, created_at, password_hash, password_salt)
    VALUES ($1, $2, $3, $4, $5, $6, $7);`

	findDevice = `SELECT account_id, device_id, name, registration_id, created_at, password_hash, password_salt
    FROM devices
    WHERE account_id = $1 AND device_id = $2;`

	findDevicesByAccount = `SELECT account_id, device_id, name, registration_id, created_at, password_hash, password_salt
    FROM devices
    WHERE account_id = $1
    ORDER BY device_id ASC;`

	deleteDevice = `DELETE FROM devices
    WHERE account_id = $1 AND device_id = $2;`

	insertPreKey = `INSERT INTO ec_pre_keys (account_id, device_id, key_id, public_key)
    VALUES ($1, $2, $3, $4);`

	// takePreKey pops the oldest one-time key atomically. SKIP LOCKED keeps
	// concurrent bundle requests from blocking on (or double-issuing) the
	// same row.
	takePreKey = `DELETE FROM ec_pre_keys
    WHERE seq = (
        SELECT seq FROM ec_pre_keys
        WHERE account_id = $1 AND device_id = $2
        ORDER BY seq ASC
        LIMIT 1
        FOR UPDATE SKIP LOCKED
    )
    RETURNING key_id, public_key;`

	deletePreKeysByIDs = `DELETE FROM ec_pre_keys
    WHERE account_id = $1 AND device_id = $2 AND key_id = ANY($3);`

	insertPqPreKey = `INSERT INTO pq_pre_keys (account_id, device_id, key_id, public_key, signature)
    VALUES ($1, $2, $3, $4, $5);`

	takePqPreKey = `DELETE FROM pq_pre_keys
    WHERE seq = (
        SELECT seq FROM pq_pre_keys
        WHERE account_id = $1 AND device_id = $2
        ORDER BY seq ASC
        LIMIT 1
        FOR UPDATE SKIP LOCKED
    )
    RETURNING key_id, public_key, signature;`

	deletePqPreKeysByIDs = `DELETE FROM pq_pre_keys
    WHERE account_id = $1 AND device_id = $2 AND key_id = ANY($3);`

	upsertSignedPreKey = `INSERT INTO signed_pre_keys (account_id, device_id, key_id, public_key, signature)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (account_id, device_id)
    DO UPDATE SET key_id = EXCLUDED.key_id, public_key = EXCLUDED.public_key, signature = EXCLUDED.signature;`

	findSignedPreKey = `SELECT key_id, public_key, signature
    FROM signed_pre_keys
    WHERE account_id = $1 AND device_id = $2;`

	deleteSignedPreKey = `DELETE FROM signed_pre_keys
    WHERE account_id = $1 AND device_id = $2;`

	upsertLastResortPqPreKey = `INSERT INTO pq_last_resort_keys (account_id, device_id, key_id, public_key, signature)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (account_id, device_id)
    DO UPDATE SET key_id = EXCLUDED.key_id, public_key = EXCLUDED.public_key, signature = EXCLUDED.signature;`

	findLastResortPqPreKey = `SELECT key_id, public_key, signature
    FROM pq_last_resort_keys
    WHERE account_id = $1 AND device_id = $2;`

	deleteLastResortPqPreKey = `DELETE FROM pq_last_resort_keys
    WHERE account_id = $1 AND device_id = $2;`

	deleteAllKeysEC = `DELETE FROM ec_pre_keys
    WHERE account_id = $1 AND device_id = $2;`

	deleteAllKeysPq = `DELETE FROM pq_pre_keys
    WHERE account_id = $1 AND device_id = $2;`

	insertEnvelope = `INSERT INTO messages (message_id, account_id, device_id, type, src_account_id, src_device_id, content)
    VALUES ($1, $2, $3, $4, $5, $6, $7);`

	findEnvelope = `SELECT message_id, account_id, device_id, type, src_account_id, src_device_id, content
    FROM messages
    WHERE account_id = $1 AND device_id = $2 AND message_id = $3;`

	deleteEnvelope = `DELETE FROM messages
    WHERE account_id = $1 AND device_id = $2 AND message_id = $3;`

	findEnvelopeIDs = `SELECT message_id
    FROM messages
    WHERE account_id = $1 AND device_id = $2
    ORDER BY seq ASC;`

	deleteAllEnvelopes = `DELETE FROM messages
    WHERE account_id = $1 AND device_id = $2;`
)
