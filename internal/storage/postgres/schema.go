package postgres

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS pool_liquidity_events (
		pool_address     TEXT   NOT NULL,
		event_type       TEXT   NOT NULL,
		token0_amount    TEXT   NOT NULL,
		token1_amount    TEXT   NOT NULL,
		token0_decimals  SMALLINT NOT NULL,
		token1_decimals  SMALLINT NOT NULL,
		provider_address TEXT   NOT NULL,
		tx_hash          TEXT   NOT NULL,
		log_index        BIGINT NOT NULL,
		block_number     BIGINT NOT NULL,
		block_time       BIGINT NOT NULL,
		PRIMARY KEY (pool_address, tx_hash, log_index)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_swaps (
		pool_address    TEXT   NOT NULL,
		sender          TEXT   NOT NULL,
		recipient       TEXT   NOT NULL,
		amount0_in      TEXT   NOT NULL,
		amount1_in      TEXT   NOT NULL,
		amount0_out     TEXT   NOT NULL,
		amount1_out     TEXT   NOT NULL,
		token0_decimals SMALLINT NOT NULL,
		token1_decimals SMALLINT NOT NULL,
		tx_hash         TEXT   NOT NULL,
		log_index       BIGINT NOT NULL,
		block_number    BIGINT NOT NULL,
		block_time      BIGINT NOT NULL,
		PRIMARY KEY (pool_address, tx_hash, log_index)
	)`,
	`CREATE TABLE IF NOT EXISTS pool_fee_claims (
		pool_address    TEXT   NOT NULL,
		sender          TEXT   NOT NULL,
		recipient       TEXT   NOT NULL,
		token0_fee      TEXT   NOT NULL,
		token1_fee      TEXT   NOT NULL,
		token0_decimals SMALLINT NOT NULL,
		token1_decimals SMALLINT NOT NULL,
		tx_hash         TEXT   NOT NULL,
		log_index       BIGINT NOT NULL,
		block_number    BIGINT NOT NULL,
		block_time      BIGINT NOT NULL,
		PRIMARY KEY (pool_address, tx_hash, log_index)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_liquidity_pool_time ON pool_liquidity_events (pool_address, block_time)`,
	`CREATE INDEX IF NOT EXISTS idx_swaps_pool_time ON pool_swaps (pool_address, block_time)`,
	`CREATE INDEX IF NOT EXISTS idx_fee_claims_pool_time ON pool_fee_claims (pool_address, block_time)`,
	`CREATE TABLE IF NOT EXISTS pool_progress (
		pool_address       TEXT   PRIMARY KEY,
		last_indexed_block BIGINT NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
