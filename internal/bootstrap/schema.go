package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/eskills-store/backend/internal/infrastructure/database"
	"github.com/eskills-store/backend/pkg/constants"
)

type migrationStep struct {
	Name string
	SQL  string
}

// Steps run in order; coupons is created last so its presence doubles as the
// sentinel for a completed schema. Every statement is idempotent.
var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id          CHAR(36)     PRIMARY KEY,
  username    VARCHAR(64)  NOT NULL UNIQUE,
  email       VARCHAR(120) NOT NULL UNIQUE,
  password    VARCHAR(255),
  edx_user_id VARCHAR(255) UNIQUE,
  is_admin    TINYINT(1)   NOT NULL DEFAULT 0,
  created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_table_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS sessions (
  id            CHAR(36)     PRIMARY KEY,
  user_id       CHAR(36)     NOT NULL,
  token         TEXT,
  expires_at    DATETIME     NOT NULL,
  ip_address    VARCHAR(45),
  user_agent    VARCHAR(255),
  is_revoked    TINYINT(1)   NOT NULL DEFAULT 0,
  last_activity DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  CONSTRAINT fk_sessions_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_index_sessions_expires_at",
		SQL:  `CREATE INDEX idx_sessions_expires_at ON sessions (expires_at);`,
	},
	{
		Name: "create_table_carts",
		SQL: `CREATE TABLE IF NOT EXISTS carts (
  id         CHAR(36) PRIMARY KEY,
  user_id    CHAR(36) NOT NULL UNIQUE,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  CONSTRAINT fk_carts_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_table_cart_items",
		SQL: `CREATE TABLE IF NOT EXISTS cart_items (
  id          CHAR(36)     PRIMARY KEY,
  cart_id     CHAR(36)     NOT NULL,
  course_id   VARCHAR(255) NOT NULL,
  mode        VARCHAR(32)  NOT NULL DEFAULT 'audit',
  price       DOUBLE,
  currency    VARCHAR(3)   NOT NULL DEFAULT 'USD',
  course_json JSON,
  created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_cart_items_course (cart_id, course_id),
  CONSTRAINT fk_cart_items_cart FOREIGN KEY (cart_id) REFERENCES carts (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_table_enrollments",
		SQL: `CREATE TABLE IF NOT EXISTS enrollments (
  id            CHAR(36)     PRIMARY KEY,
  user_id       CHAR(36)     NOT NULL,
  course_id     VARCHAR(255) NOT NULL,
  mode          VARCHAR(32)  NOT NULL DEFAULT 'audit',
  status        VARCHAR(32)  NOT NULL DEFAULT 'active',
  is_active     TINYINT(1)   NOT NULL DEFAULT 1,
  enrolled_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_accessed DATETIME,
  created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  UNIQUE KEY uq_enrollments_course (user_id, course_id),
  CONSTRAINT fk_enrollments_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_table_orders",
		SQL: `CREATE TABLE IF NOT EXISTS orders (
  id                CHAR(36)     PRIMARY KEY,
  user_id           CHAR(36)     NOT NULL,
  payment_intent_id VARCHAR(255) UNIQUE,
  amount            DOUBLE       NOT NULL DEFAULT 0,
  currency          VARCHAR(3)   NOT NULL DEFAULT 'USD',
  status            VARCHAR(32)  NOT NULL DEFAULT 'pending',
  coupon_code       VARCHAR(64),
  discount          DOUBLE       NOT NULL DEFAULT 0,
  created_at        DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at        DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
  CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_index_orders_user_status",
		SQL:  `CREATE INDEX idx_orders_user_status ON orders (user_id, status);`,
	},
	{
		Name: "create_table_order_items",
		SQL: `CREATE TABLE IF NOT EXISTS order_items (
  id          CHAR(36)     PRIMARY KEY,
  order_id    CHAR(36)     NOT NULL,
  course_id   VARCHAR(255) NOT NULL,
  course_name VARCHAR(255),
  mode        VARCHAR(32)  NOT NULL DEFAULT 'audit',
  price       DOUBLE,
  currency    VARCHAR(3)   NOT NULL DEFAULT 'USD',
  created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
	{
		Name: "create_table_coupons",
		SQL: `CREATE TABLE IF NOT EXISTS coupons (
  id          CHAR(36)    PRIMARY KEY,
  code        VARCHAR(64) NOT NULL UNIQUE,
  description VARCHAR(255),
  percent_off DOUBLE      NOT NULL,
  rule        TEXT,
  is_active   TINYINT(1)  NOT NULL DEFAULT 1,
  starts_at   DATETIME,
  ends_at     DATETIME,
  created_at  DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at  DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`,
	},
}

// InitializeSchema creates the storefront tables in dependency order. The
// check runs against the coupons table; when it already exists the whole
// schema is assumed present and the steps are skipped.
func InitializeSchema(db *database.MySQLConnection) error {
	log.Println("🔧 Initializing storefront schema...")
	ctx := context.Background()

	var count int
	sentinel := `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?`
	if err := db.QueryRowContext(ctx, sentinel, constants.TableCoupon).Scan(&count); err != nil {
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}
	if count > 0 {
		log.Println("⏭️  Schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Printf("⚠️  Migration step %s failed: %v", step.Name, err)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Printf("   🧱 %s", step.Name)
	}

	log.Println("✅ Storefront schema initialized")
	return nil
}
