package utils

import "time"

// environment variables
const DBUSER = "DBUSER"
const DBPASS = "DBPASS"
const DBHOST = "DBHOST"
const DBNAME = "DBNAME"
const PORT = "PORT"
const CORS_ALLOWED_ORIGIN = "CORS_ALLOWED_ORIGIN"
const JWT_SECRET_KEY_ACCESS = "JWT_SECRET_KEY_ACCESS"
const JWT_SECRET_KEY_ACCESS_OLD = "JWT_SECRET_KEY_ACCESS_OLD"
const JWT_SECRET_KEY_REFRESH = "JWT_SECRET_KEY_REFRESH"
const JWT_SECRET_KEY_REFRESH_OLD = "JWT_SECRET_KEY_REFRESH_OLD"
const SMTP_HOST = "SMTP_HOST"
const SMTP_PORT = "SMTP_PORT"
const SMTP_USERNAME = "SMTP_USERNAME"
const SMTP_PASSWORD = "SMTP_PASSWORD"
const SMTP_FROM = "SMTP_FROM"
const RESET_LINK_BASE_URL = "RESET_LINK_BASE_URL"

// token types
const ACCESS_TYPE = "access"
const REFRESH_TYPE = "refresh"
const TWO_FACTOR_TYPE = "twofa"

// auth limits and lifetimes
const MAX_NUM_LOGIN_ATTEMPTS = 5
const LOCKOUT_DURATION = 30 * time.Minute
const TWO_FACTOR_CODE_DURATION = 10 * time.Minute
const RESET_TOKEN_DURATION = time.Hour
const RESET_TOKEN_BYTES = 32
const ACCESS_TOKEN_DURATION = 24 * time.Hour
const REFRESH_TOKEN_DURATION = 7 * 24 * time.Hour
const HASH_ROUNDS = 12
const MIN_PASSWORD_LENGTH = 8
const RATE_LIMIT_PER_SECOND = 50

// error messages
const GORM_ERR_CODE_DUPLICATE_KEY = "Error 1062"
const MISSING_REQUEST_DATA = "Missing or malformed request data."
const GENERIC_LOGIN_ERROR = "Invalid email or password."
const ACCOUNT_LOCKED_ERROR = "Account locked after 5 failed login attempts. Try again in 30 minutes, or reset your password to unlock it now."
const GENERIC_SIGNUP_ERROR = "We had some trouble signing you up. Please try again!"
const EMAIL_TAKEN_SIGNUP_ERROR = "Someone might have signed up with that email before. Please try logging in!"
const INVALID_2FA_ERROR = "Invalid or expired verification code."
const GENERIC_FORGOT_PASSWORD_MESSAGE = "If an account exists for that email, a password reset link has been sent."
const INVALID_RESET_TOKEN_ERROR = "That password reset link is invalid or has expired. Please request a new one."
const PASSWORD_RESET_SUCCESS_MESSAGE = "Your password has been reset and your account is now unlocked."
const INVALID_SESSION_ERROR = "Your session is invalid. Please log in again."
const EXPIRED_SESSION_ERROR = "Your session has expired. Please log in again."
const DEACTIVATED_ACCOUNT_ERROR = "This account has been deactivated."
const INVALID_REFRESH_ERROR = "Invalid or expired refresh token. Please log in again."
const INTERNAL_ERROR_MESSAGE = "Something went wrong on our end. Please try again!"
const RATE_LIMIT_ERROR = `{"success":false,"message":"Too many requests. Please slow down."}`
